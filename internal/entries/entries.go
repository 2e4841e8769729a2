// Package entries implements the per-account file store: listing,
// creation, rename, batch delete/move, and filename search, all confined
// to a sandboxed account root.
package entries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/webdesk/webdesk/internal/sandbox"
)

// Reserved subtrees inside every account root. Visible to List, invisible
// to search, usage accounting, and all mutating operations.
const (
	SettingsDir = ".settings"
	LogsDir     = ".logs"
)

var (
	// ErrNameInvalid indicates a name with path separators or reserved
	// characters.
	ErrNameInvalid = errors.New("name contains invalid characters")

	// ErrAlreadyExists indicates a name collision at the target location.
	ErrAlreadyExists = errors.New("an entry with that name already exists")

	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrSystemEntry indicates an attempt to modify a reserved subtree.
	ErrSystemEntry = errors.New("system entries cannot be modified")
)

// Entry is a file or directory inside an account's sandbox.
type Entry struct {
	Name     string    `json:"name"`
	IsDir    bool      `json:"is_dir"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	IsSystem bool      `json:"is_system,omitempty"`

	// Path is the root-relative location, populated by Search.
	Path string `json:"path,omitempty"`
}

// Store manages account roots under a single data directory.
type Store struct {
	dataRoot string
}

// NewStore creates a store rooted at dataRoot, creating it if needed.
func NewStore(dataRoot string) (*Store, error) {
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data root %s: %w", abs, err)
	}
	return &Store{dataRoot: abs}, nil
}

// RootFor returns the sandbox root for an account, creating the directory
// and its reserved subtrees on first access. The raw ID is validated, not
// normalized: distinct identities must never alias to one sandbox.
func (s *Store) RootFor(accountID string) (sandbox.Root, error) {
	if err := ValidateName(accountID); err != nil {
		return sandbox.Root{}, fmt.Errorf("invalid account id %q: %w", accountID, err)
	}

	dir := filepath.Join(s.dataRoot, accountID)
	for _, d := range []string{dir, filepath.Join(dir, SettingsDir), filepath.Join(dir, LogsDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return sandbox.Root{}, fmt.Errorf("create account root: %w", err)
		}
	}
	return sandbox.NewRoot(dir), nil
}

// isReserved reports whether name is one of the reserved subtree names.
func isReserved(name string) bool {
	return name == SettingsDir || name == LogsDir
}

// isRootPath reports whether a client path denotes the account root
// itself. Empty paths, "/", and traversal that clamps to the root all
// normalize to an empty relative path.
func isRootPath(raw string) bool {
	return sandbox.Clean(raw) == ""
}

// isSystemPath reports whether a client path points at or below a
// reserved subtree.
func isSystemPath(raw string) bool {
	rel := sandbox.Clean(raw)
	if rel == "" {
		return false
	}
	first := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		first = rel[:i]
	}
	return isReserved(first)
}

// ValidateName rejects names that are empty, contain separators or
// reserved characters, or collide with the dot traversal names.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrNameInvalid
	}
	if strings.ContainsAny(name, `/\<>:"|?*`) {
		return ErrNameInvalid
	}
	for _, r := range name {
		if r < 0x20 {
			return ErrNameInvalid
		}
	}
	return nil
}

// List returns the entries of a directory, directories first, then
// case-insensitive name order. A missing directory yields an empty list
// rather than an error, so listing is idempotent with deletion races.
func (s *Store) List(root sandbox.Root, path string) ([]Entry, error) {
	abs, err := root.Resolve(path)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	atRoot := sandbox.Clean(path) == ""
	list := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		info, err := de.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		e := Entry{
			Name:     de.Name(),
			IsDir:    de.IsDir(),
			ModTime:  info.ModTime(),
			IsSystem: atRoot && isReserved(de.Name()),
		}
		if !de.IsDir() {
			e.Size = info.Size()
		}
		list = append(list, e)
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsDir != list[j].IsDir {
			return list[i].IsDir
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// CreateDirectory creates a directory named name under path.
func (s *Store) CreateDirectory(root sandbox.Root, path, name string) error {
	target, err := s.createTarget(root, path, name)
	if err != nil {
		return err
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", name, err)
	}
	return nil
}

// CreateFile creates an empty file named name under path.
func (s *Store) CreateFile(root sandbox.Root, path, name string) error {
	target, err := s.createTarget(root, path, name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create file %s: %w", name, err)
	}
	return f.Close()
}

// createTarget validates a create request and returns the absolute target
// path with the parent directory in place.
func (s *Store) createTarget(root sandbox.Root, path, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if isSystemPath(path) {
		return "", ErrSystemEntry
	}
	parent, err := root.Resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create parent %s: %w", path, err)
	}
	target := filepath.Join(parent, name)
	if _, err := os.Lstat(target); err == nil {
		return "", ErrAlreadyExists
	}
	return target, nil
}

// Rename renames the entry at path to newName within the same parent.
// Reserved subtrees are protected.
func (s *Store) Rename(root sandbox.Root, path, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	// The account root itself is never a rename target; renaming it
	// would relocate the whole sandbox to a sibling of the root.
	if isRootPath(path) || isSystemPath(path) {
		return ErrSystemEntry
	}

	abs, err := root.Resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("rename %s: %w", path, err)
	}

	dest := filepath.Join(filepath.Dir(abs), newName)
	if _, err := os.Lstat(dest); err == nil {
		return ErrAlreadyExists
	}
	if err := os.Rename(abs, dest); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
