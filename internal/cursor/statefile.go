package cursor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	stateKeyLastID    = "last_id"
	stateKeyWatermark = "watermark"
)

// StateFile is a small key=value cache next to the config file. It exists
// so a crash between two config writes still leaves the latest cursor on
// disk. On a graceful shutdown the file is removed; its absence at the next
// start signals that the config store alone is authoritative.
type StateFile struct {
	path string
}

// NewStateFile creates a state cache at dir/name.
func NewStateFile(dir, name string) *StateFile {
	return &StateFile{path: filepath.Join(dir, name)}
}

// Path returns the location of the cache file.
func (s *StateFile) Path() string {
	return s.path
}

// Load reads the cached cursor. A missing file is not an error and yields
// a zero cursor.
func (s *StateFile) Load() (Cursor, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{}, nil
		}
		return Cursor{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	var c Cursor
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case stateKeyLastID:
			c.LastID = value
		case stateKeyWatermark:
			c.Watermark = value
		}
	}
	if err := sc.Err(); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return c, nil
}

// Save rewrites the cache atomically.
func (s *StateFile) Save(c Cursor) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	content := fmt.Sprintf("%s=%s\n%s=%s\n", stateKeyLastID, c.LastID, stateKeyWatermark, c.Watermark)
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}

// Close removes the cache file. Called on graceful shutdown only.
func (s *StateFile) Close() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
