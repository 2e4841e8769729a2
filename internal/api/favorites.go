package api

import (
	"encoding/json"
	"net/http"

	"github.com/webdesk/webdesk/internal/favorites"
	"github.com/webdesk/webdesk/internal/protocol"
)

// ─── Favorites ──────────────────────────────────────────────────────────────

func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	_, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "get_favorites", err)
		return
	}

	list, err := s.favorites.Get(r.Context(), accountID)
	if err != nil {
		s.fail(w, "get_favorites", err)
		return
	}

	items := make([]protocol.FavoriteItem, 0, len(list))
	for _, f := range list {
		items = append(items, protocol.FavoriteItem{Path: f.Path, DisplayName: f.DisplayName})
	}
	s.sendJSON(w, protocol.FavoritesResponse{Success: true, Favorites: items})
}

// handleSaveFavorites replaces the caller's whole favorites list. The
// favorites field carries a JSON array; the stored document is
// last-writer-wins.
func (s *Server) handleSaveFavorites(w http.ResponseWriter, r *http.Request) {
	_, accountID, err := s.rootFor(r.Context())
	if err != nil {
		s.fail(w, "save_favorites", err)
		return
	}

	raw := r.FormValue("favorites")
	if raw == "" {
		s.sendError(w, http.StatusBadRequest, "favorites required")
		return
	}

	var items []protocol.FavoriteItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid favorites document")
		return
	}
	for _, item := range items {
		if item.Path == "" {
			s.sendError(w, http.StatusBadRequest, "favorite entries need a path")
			return
		}
	}

	list := make([]favorites.Favorite, 0, len(items))
	for _, item := range items {
		list = append(list, favorites.Favorite{Path: item.Path, DisplayName: item.DisplayName})
	}
	if err := s.favorites.Set(r.Context(), accountID, list); err != nil {
		s.fail(w, "save_favorites", err)
		return
	}
	s.sendJSON(w, protocol.Response{Success: true})
}
