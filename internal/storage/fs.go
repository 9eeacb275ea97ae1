package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/devtally/internal/checksum"
	"github.com/starford/devtally/internal/models"
)

// JSONFile implements Provider backed by a single JSON file.
type JSONFile struct {
	path string // absolute path to the data file

	mu     sync.Mutex
	last   string // checksum of the content last read or written by us
	gen    uint64 // bumped by every Save
	saving int    // saves between remembering their checksum and the rename
}

// NewJSONFile creates a JSONFile provider for path, creating its parent
// directory if needed. The file itself is created on first Save.
func NewJSONFile(path string) (*JSONFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: data path is a directory: %s", abs)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	return &JSONFile{path: abs}, nil
}

// Path returns the absolute path of the data file.
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads and decodes the data file. A missing file is an empty document.
func (f *JSONFile) Load(_ context.Context) (models.Document, error) {
	gen := f.generation()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.rememberRead(gen, "")
		return models.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	f.rememberRead(gen, checksum.Sum(data))
	return doc, nil
}

// Save atomically replaces the data file: tmp file → fsync → rename.
func (f *JSONFile) Save(_ context.Context, doc models.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".devtally-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}

	// Remember before the rename so a watcher never sees our own write as foreign.
	f.beginSave(checksum.Sum(data))
	defer f.endSave()
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Owns reports whether sum matches the content this provider last read or
// wrote. A missing file has the empty sum.
func (f *JSONFile) Owns(sum string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last == sum
}

func (f *JSONFile) generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// rememberRead records the checksum of a read unless a save overlapped it;
// the bytes read may then predate the save and must not replace its sum.
func (f *JSONFile) rememberRead(gen uint64, sum string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saving == 0 && f.gen == gen {
		f.last = sum
	}
}

func (f *JSONFile) beginSave(sum string) {
	f.mu.Lock()
	f.last = sum
	f.gen++
	f.saving++
	f.mu.Unlock()
}

func (f *JSONFile) endSave() {
	f.mu.Lock()
	f.saving--
	f.mu.Unlock()
}
