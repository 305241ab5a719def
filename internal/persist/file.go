package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// snapshot ids become file names, so they are restricted to the uuid-ish
// character set before touching the filesystem.
var safeIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FileStore keeps one JSON snapshot file per handbook id inside a
// directory. The serve command watches this directory to pick up edits
// made outside the running process.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "./handbooks"
	}
	abs, err := filepath.Abs(dir)
	if err == nil {
		dir = abs
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) pathFor(id string) (string, error) {
	if !safeIDRe.MatchString(id) {
		return "", fmt.Errorf("file store: unsafe handbook id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save writes the blob atomically (temp file + rename).
func (s *FileStore) Save(_ context.Context, id string, blob []byte) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("file store: save %s: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: save %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: save %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: save %s: %w", id, err)
	}
	return nil
}

// Load reads the blob for the id, or ErrNotFound.
func (s *FileStore) Load(_ context.Context, id string) ([]byte, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file store: load %s: %w", id, err)
	}
	return blob, nil
}

// LoadAny returns the most recently modified snapshot in the directory.
func (s *FileStore) LoadAny(_ context.Context) (string, []byte, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("file store: scan directory: %w", err)
	}
	var (
		newest    string
		newestMod int64 = -1
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newestMod = mod
			newest = e.Name()
		}
	}
	if newest == "" {
		return "", nil, ErrNotFound
	}
	id := newest[:len(newest)-len(".json")]
	blob, err := os.ReadFile(filepath.Join(s.dir, newest))
	if err != nil {
		return "", nil, fmt.Errorf("file store: load %s: %w", id, err)
	}
	return id, blob, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
