package entries

import (
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/logging"
	"github.com/webdesk/webdesk/internal/sandbox"
)

// Search walks the account tree and returns entries whose name contains
// the query, case-insensitively. Reserved subtrees are excluded. Results
// carry their root-relative path. Unreadable subtrees are logged and
// skipped rather than failing the search.
func (s *Store) Search(root sandbox.Root, query string) ([]Entry, error) {
	rootAbs, err := root.Resolve("")
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := []Entry{}

	walkErr := filepath.WalkDir(rootAbs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("search walk error", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == rootAbs {
			return nil
		}

		rel, err := filepath.Rel(rootAbs, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		first := rel
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			first = rel[:i]
		}
		if isReserved(first) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if q == "" || !strings.Contains(strings.ToLower(d.Name()), q) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		e := Entry{
			Name:    d.Name(),
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
			Path:    rel,
		}
		if !d.IsDir() {
			e.Size = info.Size()
		}
		results = append(results, e)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return results, nil
}
