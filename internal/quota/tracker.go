// Package quota provides advisory storage quota tracking and per-account
// request rate limiting.
package quota

import (
	"errors"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/logging"
)

// ErrExceeded indicates an upload would push usage past the cap.
var ErrExceeded = errors.New("storage quota exceeded")

// Tracker computes usage by walking the account tree on demand. Usage is
// advisory: concurrent writers can race past the cap by a small margin,
// which is acceptable for a soft limit.
type Tracker struct {
	capBytes int64
	skip     map[string]bool
}

// NewTracker creates a tracker with the given cap. Top-level directory
// names in skip are excluded from the accounting.
func NewTracker(capBytes int64, skip ...string) *Tracker {
	m := make(map[string]bool, len(skip))
	for _, s := range skip {
		m[s] = true
	}
	return &Tracker{capBytes: capBytes, skip: m}
}

// Cap returns the configured quota in bytes.
func (t *Tracker) Cap() int64 {
	return t.capBytes
}

// UsedBytes sums regular file sizes under root, excluding the skip
// directories. Unreadable subtrees count as zero and are logged, so a
// permission problem degrades the figure instead of failing the request.
func (t *Tracker) UsedBytes(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("quota walk error", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			rel, relErr := filepath.Rel(root, p)
			if relErr == nil && t.skip[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// CanAccept reports whether additional bytes fit under the cap, and the
// current usage it measured.
func (t *Tracker) CanAccept(root string, additional int64) (bool, int64) {
	used := t.UsedBytes(root)
	return used+additional <= t.capBytes, used
}
