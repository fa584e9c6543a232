// Package sound plays mp3 cues through an external mpg123 process.
package sound

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"sync"

	"github.com/klasvik/prewarn/pkg/logger"
	"github.com/klasvik/prewarn/pkg/metrics"
)

const fallbackSound = "ding.mp3"

// Player plays sounds from the sound folder. Sound names are paths
// relative to the folder, e.g. "sv/123.mp3".
type Player interface {
	// Play plays a sound by its folder-relative name.
	Play(ctx context.Context, sound string) error

	// PlayLang plays a sound from a language subdirectory. An empty lang
	// selects the configured default language.
	PlayLang(ctx context.Context, lang, sound string) error
}

// MPG123 shells out to mpg123 for playback. Playback is serialized so
// overlapping announcements do not talk over each other.
type MPG123 struct {
	mu          sync.Mutex
	folder      *Folder
	binary      string
	defaultLang string
	enabled     bool
	log         logger.Logger
}

// NewMPG123 locates the player binary and wraps the given sound folder.
func NewMPG123(folder *Folder, opts ...Option) (*MPG123, error) {
	p := &MPG123{
		folder:      folder,
		defaultLang: "sv",
		enabled:     true,
		log:         logger.Named("sound"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.binary == "" {
		bin, err := exec.LookPath("mpg123")
		if err != nil {
			// Windows installs carry a bundled copy next to the binary.
			if _, berr := exec.LookPath(bundledPlayerPath); berr != nil {
				return nil, ErrPlayerNotFound
			}
			bin = bundledPlayerPath
		}
		p.binary = bin
	}

	return p, nil
}

const bundledPlayerPath = "../mpg123/win/mpg123"

// Play plays a sound by its folder-relative name. A missing file falls
// back to the ding so the operator still hears that something happened.
func (p *MPG123) Play(ctx context.Context, sound string) error {
	if !p.enabled {
		p.log.Debug(ctx, "sound playback disabled, not playing", logger.String("sound", sound))
		return nil
	}

	file := p.folder.Resolve(sound)
	if !p.folder.Exists(sound) {
		p.log.Error(ctx, "requested sound does not exist", logger.String("sound", file))
		file = p.folder.Resolve(fallbackSound)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.binary, "-q", file)
	out, err := cmd.CombinedOutput()
	if err != nil {
		metrics.RecordPlaybackError()
		p.log.Error(ctx, "player process failed",
			logger.String("sound", file),
			logger.String("output", string(out)),
			logger.Error(err))
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	return nil
}

// PlayLang plays a sound from a language subdirectory, defaulting the
// language when none is given.
func (p *MPG123) PlayLang(ctx context.Context, lang, sound string) error {
	if lang == "" {
		lang = p.defaultLang
	}
	return p.Play(ctx, path.Join(lang, sound))
}
