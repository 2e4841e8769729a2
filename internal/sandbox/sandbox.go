// Package sandbox confines user-supplied relative paths to an account's
// root directory. It is the only way the rest of the server turns client
// input into a filesystem path.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrViolation indicates a client-supplied path that resolves outside
	// the sandbox root. Never retried.
	ErrViolation = errors.New("path escapes sandbox")

	// ErrRootUnavailable indicates the sandbox root itself cannot be
	// resolved. This is server misconfiguration, not client error.
	ErrRootUnavailable = errors.New("sandbox root unavailable")
)

// Characters stripped from path segments. Covers the union of characters
// rejected by the host filesystems we run on.
const illegalChars = `<>:"|?*`

// Root is the sandbox boundary for one account.
type Root struct {
	path string
}

// NewRoot returns a sandbox rooted at the given absolute directory.
func NewRoot(path string) Root {
	return Root{path: path}
}

// Path returns the root directory path.
func (r Root) Path() string {
	return r.path
}

// Clean normalizes a raw client path into a sandbox-relative path:
// separators unified, "." segments collapsed, ".." segments popped off a
// segment stack. Leading ".." segments cannot climb above the root and
// are dropped rather than rejected. Illegal characters are stripped from
// each segment after traversal resolution.
func Clean(raw string) string {
	raw = strings.ReplaceAll(raw, "\\", "/")

	var stack []string
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			seg = cleanSegment(seg)
			if seg != "" && seg != "." && seg != ".." {
				stack = append(stack, seg)
			}
		}
	}
	return strings.Join(stack, "/")
}

func cleanSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		if r < 0x20 || strings.ContainsRune(illegalChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Resolve maps a raw client path to an absolute, symlink-free path inside
// the root. The target does not have to exist: containment is checked
// against the real path of the deepest existing ancestor with the
// remaining segments re-appended. Any resolution outcome outside the real
// root is ErrViolation; a root that cannot itself be resolved is
// ErrRootUnavailable.
func (r Root) Resolve(raw string) (string, error) {
	rootReal, err := filepath.EvalSymlinks(r.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}

	rel := Clean(raw)
	target := filepath.Join(r.path, filepath.FromSlash(rel))

	real, err := realPath(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrViolation, err)
	}

	if real != rootReal && !strings.HasPrefix(real, rootReal+string(filepath.Separator)) {
		return "", ErrViolation
	}
	return real, nil
}

// Rel returns the root-relative form of a path previously produced by
// Resolve, in slash form.
func (r Root) Rel(abs string) string {
	rootReal, err := filepath.EvalSymlinks(r.path)
	if err != nil {
		rootReal = r.path
	}
	rel, err := filepath.Rel(rootReal, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// realPath resolves symlinks in target. When the target (or intermediate
// directories) do not exist, the deepest existing ancestor is resolved
// and the missing suffix re-appended.
func realPath(target string) (string, error) {
	p, err := filepath.EvalSymlinks(target)
	if err == nil {
		return p, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	var suffix []string
	cur := target
	for {
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", os.ErrNotExist
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)

		p, err := filepath.EvalSymlinks(parent)
		if err == nil {
			return filepath.Join(append([]string{p}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		cur = parent
	}
}
