package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/klasvik/prewarn/pkg/logger"
)

// Store is the hot-reloadable configuration store backing the pipeline.
// It owns the configuration file: components read typed values, set values,
// request a durable write, and register for change notifications. The file
// is also watched for external edits; a reload notifies every listener whose
// key prefix changed, including round-trips of this process's own writes.
type Store struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	path      string
	provider  *file.File
	watching  bool
	listeners []listener
	log       logger.Logger
}

type listener struct {
	prefix string
	fn     func()
}

// NewStore creates a Store bound to path. A missing file is not an error;
// it is created on the first Write.
func NewStore(path string, log logger.Logger) (*Store, error) {
	s := &Store{
		k:    koanf.New("."),
		path: path,
		log:  log.Named("config-store"),
	}

	if _, err := os.Stat(path); err == nil {
		s.provider = file.Provider(path)
		if err := s.k.Load(s.provider, yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	} else {
		s.provider = file.Provider(path)
	}

	return s, nil
}

// String returns the string value at key ("" when absent).
func (s *Store) String(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.String(key)
}

// Int returns the int value at key (0 when absent).
func (s *Store) Int(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Int(key)
}

// Int64 returns the int64 value at key (0 when absent).
func (s *Store) Int64(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Int64(key)
}

// Bool returns the bool value at key (false when absent).
func (s *Store) Bool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Bool(key)
}

// Set stores value at key in memory. Call Write to persist.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.Set(key, value)
}

// Write durably persists the current configuration. The write goes through
// a temp file and rename so the watcher never observes a half-written file.
func (s *Store) Write() error {
	s.mu.RLock()
	out, err := s.k.Marshal(yaml.Parser())
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteConfig, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteConfig, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteConfig, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteConfig, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWriteConfig, err)
	}
	return nil
}

// OnChange registers fn to run after a file reload changes any key under
// prefix. An empty prefix matches every change. Callbacks run on the
// watcher goroutine; keep them short.
func (s *Store) OnChange(prefix string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener{prefix: prefix, fn: fn})
}

// Watch starts observing the configuration file for modifications.
func (s *Store) Watch() error {
	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watching = true
	s.mu.Unlock()

	return s.provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			s.log.Error(context.Background(), "config watch error", logger.Error(err))
			return
		}
		s.reload()
	})
}

// Unwatch stops observing the configuration file.
func (s *Store) Unwatch() error {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watching = false
	s.mu.Unlock()
	return s.provider.Unwatch()
}

// Reload re-reads the file and notifies affected listeners. The watcher
// calls this automatically; tests may call it directly.
func (s *Store) Reload() {
	s.reload()
}

func (s *Store) reload() {
	fresh := koanf.New(".")
	if err := fresh.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		s.log.Error(context.Background(), "config reload failed", logger.Error(err))
		return
	}

	s.mu.Lock()
	old := s.k
	s.k = fresh

	var notify []func()
	for _, l := range s.listeners {
		if subtreeChanged(old, fresh, l.prefix) {
			notify = append(notify, l.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

func subtreeChanged(old, fresh *koanf.Koanf, prefix string) bool {
	if prefix == "" {
		return !reflect.DeepEqual(old.Raw(), fresh.Raw())
	}
	// Get covers both subtree maps and scalar top-level keys.
	return !reflect.DeepEqual(old.Get(prefix), fresh.Get(prefix))
}
