package cursor

import (
	"fmt"

	"github.com/klasvik/prewarn/internal/config"
)

// ConfigStore persists the cursor inside the live configuration store so
// operators can inspect and edit progress in the config file. Writes are
// synchronous: Save returns only after the file has been rewritten.
type ConfigStore struct {
	store        *config.Store
	lastIDKey    string
	watermarkKey string
}

// NewConfigStore binds a cursor to two keys of the configuration store.
// watermarkKey may be empty for sources that track only an id.
func NewConfigStore(store *config.Store, lastIDKey, watermarkKey string) *ConfigStore {
	return &ConfigStore{
		store:        store,
		lastIDKey:    lastIDKey,
		watermarkKey: watermarkKey,
	}
}

// Load reads the cursor keys from the configuration store. Missing keys
// read as empty strings, which yields a zero cursor on first run.
func (s *ConfigStore) Load() (Cursor, error) {
	c := Cursor{LastID: s.store.String(s.lastIDKey)}
	if s.watermarkKey != "" {
		c.Watermark = s.store.String(s.watermarkKey)
	}
	return c, nil
}

// Save writes the cursor keys and rewrites the config file on disk.
func (s *ConfigStore) Save(c Cursor) error {
	if err := s.store.Set(s.lastIDKey, c.LastID); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	if s.watermarkKey != "" {
		if err := s.store.Set(s.watermarkKey, c.Watermark); err != nil {
			return fmt.Errorf("%w: %v", ErrSave, err)
		}
	}
	if err := s.store.Write(); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}
