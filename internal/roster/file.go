package roster

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/klasvik/prewarn/internal/adapters/sound"
	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

// File reads an IOF 3.0 start list from disk and watches it for changes.
// Lookups are served from an in-memory snapshot that is swapped atomically
// on reload, so readers never see a half-parsed list.
type File struct {
	path        string
	updateSound string
	player      sound.Player
	log         logger.Logger

	mu      sync.RWMutex
	runners map[string]Entry
	running bool

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewFile creates a file-backed roster. player may be nil to disable the
// audible reload cue.
func NewFile(path, updateSound string, player sound.Player) *File {
	return &File{
		path:        path,
		updateSound: updateSound,
		player:      player,
		log:         logger.Named("roster.file"),
	}
}

// Start loads the start list and begins watching its directory. The watch
// covers the parent directory because editors and OLA exports replace the
// file rather than write it in place.
func (f *File) Start(ctx context.Context) error {
	if err := f.load(ctx, false); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return err
	}

	f.mu.Lock()
	f.watcher = watcher
	f.stopCh = make(chan struct{})
	f.running = true
	f.mu.Unlock()

	f.wg.Add(1)
	go f.watch(ctx)

	return nil
}

// Stop ends the file watch. Lookups fail afterwards.
func (f *File) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	watcher := f.watcher
	close(f.stopCh)
	f.mu.Unlock()

	err := watcher.Close()
	f.wg.Wait()
	return err
}

// IsRunning reports whether the roster is in service.
func (f *File) IsRunning() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.running
}

// LookupCard resolves a card number against the current snapshot.
func (f *File) LookupCard(ctx context.Context, cardNumber string) (Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.running {
		return Entry{}, ErrNotRunning
	}
	entry, ok := f.runners[cardNumber]
	if !ok {
		metrics.RecordRosterLookupMiss()
		f.log.Warn(ctx, "card number not found", logger.String("card_number", cardNumber))
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Refresh re-reads the start list immediately.
func (f *File) Refresh(ctx context.Context) error {
	return f.load(ctx, true)
}

// load parses the file and swaps the snapshot in. On a reload failure the
// previous snapshot stays in place.
func (f *File) load(ctx context.Context, announce bool) error {
	runners, event, err := parseStartList(f.path)
	if err != nil {
		metrics.RecordRosterReloadError()
		f.log.Error(ctx, "failed to read start list",
			logger.String("path", f.path),
			logger.Error(err))
		return err
	}

	f.mu.Lock()
	f.runners = runners
	f.mu.Unlock()

	metrics.RecordRosterReload()
	metrics.UpdateRosterSize(len(runners))
	f.log.Info(ctx, "start list loaded",
		logger.String("event", event.Name),
		logger.String("date", event.Date),
		logger.Int("runners", len(runners)))

	if announce && f.player != nil && f.updateSound != "" {
		if err := f.player.Play(ctx, f.updateSound); err != nil {
			f.log.Warn(ctx, "failed to play update sound", logger.Error(err))
		}
	}
	return nil
}

func (f *File) watch(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !f.matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Reload errors keep the previous snapshot; nothing else to do.
			_ = f.load(ctx, true)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn(ctx, "start list watch error", logger.Error(err))
		case <-f.stopCh:
			return
		}
	}
}

// matches reports whether a watch event refers to the start-list file.
// Editors that write through a backup file emit events with a trailing
// tilde.
func (f *File) matches(name string) bool {
	name = strings.TrimSuffix(name, "~")
	return filepath.Clean(name) == filepath.Clean(f.path)
}
