package entries

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webdesk/webdesk/internal/sandbox"
)

// ItemError records the failure of one item in a batch operation.
type ItemError struct {
	Path string
	Err  error
}

// BatchError aggregates per-item failures from delete and move. Items
// that succeeded before or after a failure stay committed; the error only
// enumerates what failed.
type BatchError struct {
	Items []ItemError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: %v", it.Path, it.Err))
	}
	return fmt.Sprintf("%d item(s) failed: %s", len(e.Items), strings.Join(parts, "; "))
}

// Delete removes a batch of entries, recursing into directories.
// Reserved subtrees and already-missing entries are silently skipped.
// Failures do not abort the batch; they are reported in an aggregate
// error after all items have been attempted.
func (s *Store) Delete(root sandbox.Root, paths []string) ([]string, error) {
	var deleted []string
	var failed []ItemError

	for _, p := range paths {
		// The root itself is protected like the reserved subtrees:
		// removing it would take .settings and .logs with it.
		if isRootPath(p) || isSystemPath(p) {
			continue
		}
		abs, err := root.Resolve(p)
		if err != nil {
			failed = append(failed, ItemError{Path: p, Err: err})
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			failed = append(failed, ItemError{Path: p, Err: err})
			continue
		}
		if err := os.RemoveAll(abs); err != nil {
			failed = append(failed, ItemError{Path: p, Err: err})
			continue
		}
		deleted = append(deleted, p)
	}

	if len(failed) > 0 {
		return deleted, &BatchError{Items: failed}
	}
	return deleted, nil
}

// Move relocates a batch of entries into the destination directory.
// Source and destination resolve independently through the sandbox; a
// destination equal to or inside a source is rejected by comparing the
// resolved real paths. Name collisions at the destination are rejected
// and reserved subtrees skipped. Per-item failures accumulate without
// aborting the batch.
func (s *Store) Move(root sandbox.Root, paths []string, destination string) ([]string, error) {
	var failed []ItemError

	if isSystemPath(destination) {
		return nil, ErrSystemEntry
	}
	destAbs, err := root.Resolve(destination)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(destAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("move destination %s: %w", destination, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("move destination %s: %w", destination, ErrNameInvalid)
	}

	var moved []string
	for _, p := range paths {
		if isRootPath(p) || isSystemPath(p) {
			continue
		}
		abs, err := root.Resolve(p)
		if err != nil {
			failed = append(failed, ItemError{Path: p, Err: err})
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			failed = append(failed, ItemError{Path: p, Err: ErrNotFound})
			continue
		}

		// Self-containment guard on resolved paths, not raw strings.
		if destAbs == abs || strings.HasPrefix(destAbs+string(filepath.Separator), abs+string(filepath.Separator)) {
			failed = append(failed, ItemError{Path: p, Err: fmt.Errorf("cannot move an entry into itself")})
			continue
		}

		target := filepath.Join(destAbs, filepath.Base(abs))
		if _, err := os.Lstat(target); err == nil {
			failed = append(failed, ItemError{Path: p, Err: ErrAlreadyExists})
			continue
		}
		if err := os.Rename(abs, target); err != nil {
			failed = append(failed, ItemError{Path: p, Err: err})
			continue
		}
		moved = append(moved, p)
	}

	if len(failed) > 0 {
		return moved, &BatchError{Items: failed}
	}
	return moved, nil
}
