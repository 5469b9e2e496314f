package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/checksum"
)

// Ext is the file extension of stored keys.
const Ext = ".json"

// tmpPrefix marks in-flight writes; the watcher ignores these files.
const tmpPrefix = ".planner-tmp-"

// FS stores each key as <key>.json inside a data directory.
type FS struct {
	root string
}

var _ Store = (*FS)(nil)

// NewFS opens a store rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// path maps a key to its file. Keys are restricted to a safe alphabet, and
// the joined path is checked to stay under root.
func (f *FS) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(f.root, key+Ext)
	if filepath.Dir(p) != f.root {
		return "", fmt.Errorf("storage: key escapes data dir: %s", key)
	}
	return p, nil
}

// KeyForPath returns the key stored at an absolute file path, or false for
// files that are not store entries.
func (f *FS) KeyForPath(p string) (string, bool) {
	if filepath.Dir(p) != f.root {
		return "", false
	}
	name := filepath.Base(p)
	if strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, Ext) {
		return "", false
	}
	key := strings.TrimSuffix(name, Ext)
	if checkKey(key) != nil {
		return "", false
	}
	return key, true
}

// Load reads the blob stored under key.
func (f *FS) Load(key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: load %s: %w", key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return data, nil
}

// Save writes data atomically: temp file, fsync, rename.
func (f *FS) Save(key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
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
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (f *FS) Delete(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// List returns every stored key with its checksum.
func (f *FS) List() ([]Entry, error) {
	dirents, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := []Entry{}
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		key, ok := f.KeyForPath(filepath.Join(f.root, d.Name()))
		if !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", d.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", d.Name(), err)
		}
		out = append(out, Entry{Key: key, Checksum: checksum.Sum(data), UpdatedAt: info.ModTime()})
	}
	return out, nil
}

// Close is a no-op for the file store.
func (f *FS) Close() error { return nil }
