package sound

import (
	"os"
	"path/filepath"
	"sort"
)

// Folder exposes the on-disk sound library. The layout is one directory
// per language holding mp3 files, plus shared files at the top level.
type Folder struct {
	dir string
}

// NewFolder wraps the given sounds directory.
func NewFolder(dir string) *Folder {
	return &Folder{dir: dir}
}

// Dir returns the folder root.
func (f *Folder) Dir() string {
	return f.dir
}

// Languages lists the language subdirectories, sorted.
func (f *Folder) Languages() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// Resolve returns the absolute path for a sound relative to the folder.
func (f *Folder) Resolve(sound string) string {
	return filepath.Join(f.dir, sound)
}

// Exists reports whether the given sound file is present.
func (f *Folder) Exists(sound string) bool {
	info, err := os.Stat(f.Resolve(sound))
	return err == nil && !info.IsDir()
}
