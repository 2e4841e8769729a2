package api

import (
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/webdesk/webdesk/internal/entries"
	"github.com/webdesk/webdesk/internal/events"
	"github.com/webdesk/webdesk/internal/protocol"
)

// ─── Listing and search ─────────────────────────────────────────────────────

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	root, _, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}

	list, err := s.entries.List(root, r.FormValue("path"))
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	s.sendJSON(w, protocol.ListResponse{Success: true, Entries: list})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	root, _, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "search", err)
		return
	}

	query := r.FormValue("query")
	if query == "" {
		s.sendError(w, http.StatusBadRequest, "query required")
		return
	}

	results, err := s.entries.Search(root, query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.sendJSON(w, protocol.ListResponse{Success: true, Entries: results})
}

// ─── Create and rename ──────────────────────────────────────────────────────

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "create_folder", err)
		return
	}

	path, name := r.FormValue("path"), r.FormValue("name")
	if err := s.entries.CreateDirectory(root, path, name); err != nil {
		s.fail(w, "create_folder", err)
		return
	}
	s.publishEvent(accountID, events.EventCreate, joinClientPath(path, name), 0)
	s.sendJSON(w, protocol.Response{Success: true})
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "create_file", err)
		return
	}

	path, name := r.FormValue("path"), r.FormValue("name")
	if err := s.entries.CreateFile(root, path, name); err != nil {
		s.fail(w, "create_file", err)
		return
	}
	s.publishEvent(accountID, events.EventCreate, joinClientPath(path, name), 0)
	s.sendJSON(w, protocol.Response{Success: true})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "rename", err)
		return
	}

	itemPath, newName := r.FormValue("item_path"), r.FormValue("new_name")
	if err := s.entries.Rename(root, itemPath, newName); err != nil {
		s.fail(w, "rename", err)
		return
	}
	s.publishEvent(accountID, events.EventMove, itemPath, 0)
	s.sendJSON(w, protocol.Response{Success: true})
}

// ─── Batch operations ───────────────────────────────────────────────────────

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "delete", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	items := r.PostForm["items"]
	if len(items) == 0 {
		s.sendError(w, http.StatusBadRequest, "items required")
		return
	}

	deleted, err := s.entries.Delete(root, items)
	for _, p := range deleted {
		s.publishEvent(accountID, events.EventDelete, p, 0)
	}
	s.sendBatchResult(w, "delete", deleted, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "move", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	items := r.PostForm["items"]
	destination := r.FormValue("destination")
	if len(items) == 0 {
		s.sendError(w, http.StatusBadRequest, "items required")
		return
	}

	moved, err := s.entries.Move(root, items, destination)
	// Destination-level failures abort before any item moves.
	var batchErr *entries.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		s.fail(w, "move", err)
		return
	}
	for _, p := range moved {
		s.publishEvent(accountID, events.EventMove, p, 0)
	}
	s.sendBatchResult(w, "move", moved, err)
}

// sendBatchResult reports a best-effort batch outcome. Partial failure is
// still a 200; the per-item breakdown tells the client what happened.
func (s *Server) sendBatchResult(w http.ResponseWriter, op string, succeeded []string, err error) {
	if succeeded == nil {
		succeeded = []string{}
	}
	resp := protocol.BatchResponse{Success: err == nil, Succeeded: succeeded}
	if err != nil {
		var batchErr *entries.BatchError
		if errors.As(err, &batchErr) {
			resp.Message = op + " completed with errors"
			for _, item := range batchErr.Items {
				resp.Failed = append(resp.Failed, item.Path)
				resp.Errors = append(resp.Errors, item.Err.Error())
			}
		} else {
			s.fail(w, op, err)
			return
		}
	}
	s.sendJSON(w, resp)
}

// ─── Usage ──────────────────────────────────────────────────────────────────

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	root, _, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "usage", err)
		return
	}

	used := s.tracker.UsedBytes(root.Path())
	s.sendJSON(w, protocol.UsageResponse{
		Success:   true,
		UsedBytes: used,
		CapBytes:  s.tracker.Cap(),
		Used:      humanize.IBytes(uint64(used)),
		Cap:       humanize.IBytes(uint64(s.tracker.Cap())),
	})
}

// joinClientPath joins a parent path and name for event reporting.
func joinClientPath(path, name string) string {
	if path == "" || path == "/" {
		return name
	}
	return path + "/" + name
}
