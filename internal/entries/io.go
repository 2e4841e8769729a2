package entries

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/webdesk/webdesk/internal/sandbox"
)

// WriteFile stores content as path/name, creating intermediate
// directories as needed. The write goes to a temp file in the target
// directory and is renamed into place, so readers never observe a
// partial file. Returns the number of bytes written.
func (s *Store) WriteFile(root sandbox.Root, path, name string, content io.Reader) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	if isSystemPath(path) {
		return 0, ErrSystemEntry
	}
	parent, err := root.Resolve(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return 0, fmt.Errorf("create parent %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(parent, ".webdesk-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close temp for %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(parent, name)); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return n, nil
}

// OpenFile opens a file for reading and returns it with its metadata.
// Directories and missing paths report ErrNotFound.
func (s *Store) OpenFile(root sandbox.Root, path string) (io.ReadCloser, os.FileInfo, error) {
	abs, err := root.Resolve(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}
