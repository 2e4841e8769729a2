package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/events"
	"github.com/webdesk/webdesk/internal/logging"
	"github.com/webdesk/webdesk/internal/metrics"
	"github.com/webdesk/webdesk/internal/protocol"
	"github.com/webdesk/webdesk/internal/quota"
	"github.com/webdesk/webdesk/internal/sandbox"
)

// ─── Upload ─────────────────────────────────────────────────────────────────

// handleUpload accepts multipart uploads into the directory given by the
// path field. An optional relative_paths field, parallel to files,
// carries the client-side location of each file for folder uploads.
// Each file is checked against the quota before it is written; a file
// that would exceed the cap fails without affecting the files already
// stored.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "upload", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.sendError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	defer r.MultipartForm.RemoveAll()

	destDir := r.FormValue("path")
	files := r.MultipartForm.File["files"]
	relPaths := r.MultipartForm.Value["relative_paths"]
	if len(files) == 0 {
		s.sendError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	var uploaded []string
	for i, fh := range files {
		name := filepath.Base(fh.Filename)
		dir := destDir
		if i < len(relPaths) && relPaths[i] != "" {
			// The relative location is client input and goes through
			// the same normalization as any other path.
			if rel := sandbox.Clean(relPaths[i]); rel != "" {
				name = path.Base(rel)
				if sub := path.Dir(rel); sub != "." {
					dir = joinClientPath(destDir, sub)
				}
			}
		}

		if ok, used := s.tracker.CanAccept(root.Path(), fh.Size); !ok {
			metrics.RecordQuotaExceeded()
			logging.Warn("upload rejected by quota",
				zap.String("account", accountID),
				zap.String("name", name),
				zap.Int64("size", fh.Size),
				zap.Int64("used", used))
			s.sendJSON(w, protocol.UploadResponse{
				Success:  false,
				Message:  quota.ErrExceeded.Error(),
				Uploaded: uploaded,
			})
			return
		}

		f, err := fh.Open()
		if err != nil {
			s.fail(w, "upload", err)
			return
		}
		n, err := s.entries.WriteFile(root, dir, name, f)
		f.Close()
		if err != nil {
			metrics.RecordUpload(0, false)
			s.fail(w, "upload", err)
			return
		}
		metrics.RecordUpload(n, true)
		uploaded = append(uploaded, joinClientPath(dir, name))
		s.publishEvent(accountID, events.EventModify, joinClientPath(dir, name), n)
	}

	s.sendJSON(w, protocol.UploadResponse{Success: true, Uploaded: uploaded})
}

// ─── Download ───────────────────────────────────────────────────────────────

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	root, _, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "download", err)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		s.sendError(w, http.StatusBadRequest, "path required")
		return
	}

	rc, info, err := s.entries.OpenFile(root, path)
	if err != nil {
		metrics.RecordDownload(0, false)
		s.fail(w, "download", err)
		return
	}
	defer rc.Close()

	serveFile(w, info.Name(), info.Size(), rc)
	metrics.RecordDownload(info.Size(), true)
}

// serveFile writes a file response with download headers.
func serveFile(w http.ResponseWriter, name string, size int64, content io.Reader) {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.Copy(w, content)
}
