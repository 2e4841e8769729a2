// Package api provides the HTTP server and handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/auth"
	"github.com/webdesk/webdesk/internal/config"
	"github.com/webdesk/webdesk/internal/entries"
	"github.com/webdesk/webdesk/internal/events"
	"github.com/webdesk/webdesk/internal/favorites"
	"github.com/webdesk/webdesk/internal/logging"
	"github.com/webdesk/webdesk/internal/metrics"
	"github.com/webdesk/webdesk/internal/protocol"
	"github.com/webdesk/webdesk/internal/quota"
	"github.com/webdesk/webdesk/internal/sandbox"
	"github.com/webdesk/webdesk/internal/sharing"
)

// Server is the HTTP server.
type Server struct {
	entries     *entries.Store
	tracker     *quota.Tracker
	shares      *sharing.Store
	favorites   *favorites.Store
	auth        *auth.Auth
	broadcaster *events.Broadcaster
	rateLimiter *quota.RateLimiter
	config      *config.Config
}

// NewServer creates a new server.
func NewServer(
	entryStore *entries.Store,
	tracker *quota.Tracker,
	shareStore *sharing.Store,
	favoriteStore *favorites.Store,
	authHandler *auth.Auth,
	broadcaster *events.Broadcaster,
	rateLimiter *quota.RateLimiter,
	cfg *config.Config,
) *Server {
	return &Server{
		entries:     entryStore,
		tracker:     tracker,
		shares:      shareStore,
		favorites:   favoriteStore,
		auth:        authHandler,
		broadcaster: broadcaster,
		rateLimiter: rateLimiter,
		config:      cfg,
	}
}

// Handler returns the HTTP handler with auth and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/share/{token}/info", s.handleShareInfo)
	mux.HandleFunc("GET /api/v1/share/{token}", s.handleShareDownload)

	// Protected endpoints
	protected := http.NewServeMux()

	// File store endpoints
	protected.HandleFunc("POST /api/v1/fs/list", s.handleList)
	protected.HandleFunc("POST /api/v1/fs/create_folder", s.handleCreateFolder)
	protected.HandleFunc("POST /api/v1/fs/create_file", s.handleCreateFile)
	protected.HandleFunc("POST /api/v1/fs/rename", s.handleRename)
	protected.HandleFunc("POST /api/v1/fs/delete", s.handleDelete)
	protected.HandleFunc("POST /api/v1/fs/move", s.handleMove)
	protected.HandleFunc("POST /api/v1/fs/search", s.handleSearch)
	protected.HandleFunc("POST /api/v1/fs/upload", s.handleUpload)
	protected.HandleFunc("GET /api/v1/fs/download", s.handleDownload)
	protected.HandleFunc("GET /api/v1/fs/usage", s.handleUsage)

	// Favorites endpoints
	protected.HandleFunc("GET /api/v1/favorites", s.handleGetFavorites)
	protected.HandleFunc("POST /api/v1/favorites", s.handleSaveFavorites)

	// Share management endpoints
	protected.HandleFunc("POST /api/v1/share/create", s.handleCreateShare)
	protected.HandleFunc("POST /api/v1/share/stop", s.handleStopShare)
	protected.HandleFunc("GET /api/v1/shares", s.handleListShares)

	// SSE endpoint
	protected.HandleFunc("GET /api/v1/events", s.handleEvents)

	// The rate limiter sits inside the auth wrap so the account identity
	// is already in the context when it runs.
	rateLimited := quota.RateLimitMiddleware(s.rateLimiter, s.config.RequestsPerMin, auth.AccountID)(protected)
	mux.Handle("/api/v1/", s.auth.Middleware(rateLimited))

	// Apply logging and metrics middleware
	return metrics.Middleware(logging.Middleware(mux))
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "1.0"})
}

// ─── SSE Events ─────────────────────────────────────────────────────────────

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		s.sendError(w, http.StatusUnauthorized, "missing account")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe(accountID)
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

// publishEvent publishes an event to the broadcaster if available.
func (s *Server) publishEvent(accountID, eventType, path string, size int64) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(events.Event{
		Type:      eventType,
		Path:      path,
		Size:      size,
		AccountID: accountID,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// rootFor resolves the caller's sandbox root from the request context.
func (s *Server) rootFor(ctx context.Context) (sandbox.Root, string, error) {
	accountID, ok := auth.AccountID(ctx)
	if !ok {
		return sandbox.Root{}, "", fmt.Errorf("missing account in context")
	}
	root, err := s.entries.RootFor(accountID)
	if err != nil {
		return sandbox.Root{}, "", err
	}
	return root, accountID, nil
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.Response{
		Success: false,
		Message: message,
	})
}

// fail maps a domain error to an HTTP status and response. Infrastructure
// failures are logged and reported generically.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, sandbox.ErrViolation):
		metrics.RecordSandboxViolation()
		s.sendError(w, http.StatusBadRequest, "invalid path")
	case errors.Is(err, sandbox.ErrRootUnavailable):
		logging.Error("sandbox root unavailable", zap.String("op", op), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
	case errors.Is(err, entries.ErrNameInvalid):
		s.sendError(w, http.StatusBadRequest, entries.ErrNameInvalid.Error())
	case errors.Is(err, entries.ErrAlreadyExists):
		s.sendError(w, http.StatusConflict, entries.ErrAlreadyExists.Error())
	case errors.Is(err, entries.ErrNotFound):
		s.sendError(w, http.StatusNotFound, entries.ErrNotFound.Error())
	case errors.Is(err, entries.ErrSystemEntry):
		s.sendError(w, http.StatusForbidden, entries.ErrSystemEntry.Error())
	case errors.Is(err, quota.ErrExceeded):
		metrics.RecordQuotaExceeded()
		s.sendError(w, http.StatusRequestEntityTooLarge, quota.ErrExceeded.Error())
	default:
		logging.Error("request failed", zap.String("op", op), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}
