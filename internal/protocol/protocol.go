// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/webdesk/webdesk/internal/entries"
)

// Response is the envelope for operations that carry no payload. Every
// endpoint reports its outcome through the success flag; message holds a
// human-readable error when success is false.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse is returned by POST /api/v1/fs/list and fs/search.
type ListResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Entries []entries.Entry `json:"entries"`
}

// BatchResponse is returned by the batch delete and move operations.
// Succeeded holds the items that were committed even when others failed.
type BatchResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message,omitempty"`
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// UsageResponse is returned by GET /api/v1/fs/usage.
type UsageResponse struct {
	Success   bool   `json:"success"`
	UsedBytes int64  `json:"used_bytes"`
	CapBytes  int64  `json:"cap_bytes"`
	Used      string `json:"used"`
	Cap       string `json:"cap"`
}

// UploadResponse is returned by POST /api/v1/fs/upload.
type UploadResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Uploaded []string `json:"uploaded"`
}

// FavoriteItem is one pinned entry in an account's favorites list.
type FavoriteItem struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
}

// FavoritesResponse is returned by GET /api/v1/favorites.
type FavoritesResponse struct {
	Success   bool           `json:"success"`
	Favorites []FavoriteItem `json:"favorites"`
}

// ShareResponse is returned when creating a share link.
type ShareResponse struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message,omitempty"`
	Token       string     `json:"token,omitempty"`
	URL         string     `json:"url,omitempty"`
	HasPassword bool       `json:"has_password,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ShareInfoResponse is returned by GET /api/v1/share/{token}/info.
type ShareInfoResponse struct {
	Name        string     `json:"name"`
	IsDir       bool       `json:"is_dir"`
	Size        int64      `json:"size,omitempty"`
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Valid       bool       `json:"valid"`
	Error       string     `json:"error,omitempty"`
}

// ShareListItem describes one share link owned by the caller.
type ShareListItem struct {
	Token       string     `json:"token"`
	Path        string     `json:"path"`
	URL         string     `json:"url"`
	Visibility  string     `json:"visibility"`
	HasPassword bool       `json:"has_password"`
	Recipients  []string   `json:"recipients,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ShareListResponse is returned by GET /api/v1/shares.
type ShareListResponse struct {
	Success bool            `json:"success"`
	Shares  []ShareListItem `json:"shares"`
}
