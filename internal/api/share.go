package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/entries"
	"github.com/webdesk/webdesk/internal/logging"
	"github.com/webdesk/webdesk/internal/metrics"
	"github.com/webdesk/webdesk/internal/protocol"
	"github.com/webdesk/webdesk/internal/sandbox"
	"github.com/webdesk/webdesk/internal/sharing"
)

// ─── Share management ───────────────────────────────────────────────────────

// handleCreateShare creates or refreshes a share link for a path the
// caller owns. Sharing the same path again keeps the existing token so
// URLs already handed out stay valid.
func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	root, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "create_share", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	path := sandbox.Clean(r.FormValue("item_path"))
	if path == "" {
		s.sendError(w, http.StatusBadRequest, "item_path required")
		return
	}

	// The shared entry must exist right now; it may still vanish later,
	// in which case the link dangles and downloads report not found.
	abs, err := root.Resolve(path)
	if err != nil {
		s.fail(w, "create_share", err)
		return
	}
	if _, err := os.Stat(abs); err != nil {
		s.fail(w, "create_share", entries.ErrNotFound)
		return
	}

	var expiresAt *time.Time
	if v := r.FormValue("expires_in_sec"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs < 0 {
			s.sendError(w, http.StatusBadRequest, "invalid expires_in_sec")
			return
		}
		if secs > 0 {
			t := time.Now().Add(time.Duration(secs) * time.Second)
			expiresAt = &t
		}
	}

	share, err := s.shares.Create(r.Context(), sharing.CreateParams{
		OwnerID:    accountID,
		SourcePath: path,
		Visibility: r.FormValue("visibility"),
		Password:   r.FormValue("password"),
		Recipients: r.PostForm["recipients"],
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		s.fail(w, "create_share", err)
		return
	}

	logging.Info("share created",
		zap.String("account", accountID),
		zap.String("path", path),
		zap.String("visibility", share.Visibility))
	s.sendJSON(w, protocol.ShareResponse{
		Success:     true,
		Token:       share.Token,
		URL:         s.shareURL(r, share.Token),
		HasPassword: share.HasPassword,
		ExpiresAt:   share.ExpiresAt,
	})
}

// handleStopShare revokes the share for a path. Stopping a path that is
// not shared succeeds, so the operation is idempotent.
func (s *Server) handleStopShare(w http.ResponseWriter, r *http.Request) {
	_, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "stop_share", err)
		return
	}

	path := sandbox.Clean(r.FormValue("item_path"))
	if path == "" {
		s.sendError(w, http.StatusBadRequest, "item_path required")
		return
	}

	if err := s.shares.Revoke(r.Context(), accountID, path); err != nil {
		s.fail(w, "stop_share", err)
		return
	}
	s.sendJSON(w, protocol.Response{Success: true})
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	_, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "list_shares", err)
		return
	}

	shares, err := s.shares.ListByOwner(r.Context(), accountID)
	if err != nil {
		s.fail(w, "list_shares", err)
		return
	}

	items := make([]protocol.ShareListItem, 0, len(shares))
	for _, share := range shares {
		items = append(items, protocol.ShareListItem{
			Token:       share.Token,
			Path:        share.SourcePath,
			URL:         s.shareURL(r, share.Token),
			Visibility:  share.Visibility,
			HasPassword: share.HasPassword,
			Recipients:  share.Recipients,
			ExpiresAt:   share.ExpiresAt,
			CreatedAt:   share.CreatedAt,
		})
	}
	s.sendJSON(w, protocol.ShareListResponse{Success: true, Shares: items})
}

// ─── Public share access ────────────────────────────────────────────────────

func (s *Server) handleShareInfo(w http.ResponseWriter, r *http.Request) {
	share, err := s.shares.Resolve(r.Context(), r.PathValue("token"))
	if errors.Is(err, sharing.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "share not found")
		return
	}
	if err != nil {
		s.fail(w, "share_info", err)
		return
	}

	info := protocol.ShareInfoResponse{
		HasPassword: share.HasPassword,
		ExpiresAt:   share.ExpiresAt,
		Valid:       true,
	}
	if share.Expired() {
		info.Valid = false
		info.Error = "share has expired"
		s.sendJSON(w, info)
		return
	}

	_, stat, err := s.statShared(share)
	if err != nil {
		// Dangling link: the shared entry was renamed or deleted.
		info.Valid = false
		info.Error = "shared entry no longer exists"
		s.sendJSON(w, info)
		return
	}
	info.Name = stat.Name()
	info.IsDir = stat.IsDir()
	if !stat.IsDir() {
		info.Size = stat.Size()
	}
	s.sendJSON(w, info)
}

// handleShareDownload serves shared content. Expiry, password, and
// recipient checks all happen here; the registry only stores settings.
func (s *Server) handleShareDownload(w http.ResponseWriter, r *http.Request) {
	share, err := s.shares.Resolve(r.Context(), r.PathValue("token"))
	if errors.Is(err, sharing.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "share not found")
		return
	}
	if err != nil {
		s.fail(w, "share_download", err)
		return
	}

	if share.Expired() {
		s.sendError(w, http.StatusGone, "share has expired")
		return
	}

	if share.Visibility == sharing.VisibilityPrivate {
		claims := s.auth.ClaimsFromRequest(r)
		if claims == nil {
			s.sendError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !share.AllowedFor(claims.AccountID) {
			s.sendError(w, http.StatusForbidden, "not a recipient of this share")
			return
		}
	}

	if share.HasPassword && !share.VerifyPassword(sharePassword(r)) {
		s.sendError(w, http.StatusUnauthorized, "password required")
		return
	}

	root, err := s.entries.RootFor(share.OwnerID)
	if err != nil {
		s.fail(w, "share_download", err)
		return
	}

	_, stat, err := s.statShared(share)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "shared entry no longer exists")
		return
	}

	if stat.IsDir() {
		// Directory shares get a listing instead of content.
		list, err := s.entries.List(root, share.SourcePath)
		if err != nil {
			s.fail(w, "share_download", err)
			return
		}
		metrics.RecordShareDownload()
		s.sendJSON(w, protocol.ListResponse{Success: true, Entries: list})
		return
	}

	rc, info, err := s.entries.OpenFile(root, share.SourcePath)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "shared entry no longer exists")
		return
	}
	defer rc.Close()

	metrics.RecordShareDownload()
	serveFile(w, info.Name(), info.Size(), rc)
	metrics.RecordDownload(info.Size(), true)
}

// statShared resolves a share's target inside its owner's sandbox.
func (s *Server) statShared(share *sharing.Share) (string, os.FileInfo, error) {
	root, err := s.entries.RootFor(share.OwnerID)
	if err != nil {
		return "", nil, err
	}
	abs, err := root.Resolve(share.SourcePath)
	if err != nil {
		return "", nil, err
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return "", nil, err
	}
	return abs, stat, nil
}

// shareURL builds the public URL for a token, preferring the configured
// base URL over the request's host.
func (s *Server) shareURL(r *http.Request, token string) string {
	base := s.config.ShareBaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimSuffix(base, "/") + "/api/v1/share/" + token
}

func sharePassword(r *http.Request) string {
	if p := r.URL.Query().Get("password"); p != "" {
		return p
	}
	return r.Header.Get("X-Share-Password")
}
