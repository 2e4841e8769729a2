// Package favorites persists each account's pinned entries as a single
// JSONB document.
package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/webdesk/webdesk/internal/metrics"
)

// Favorite is one pinned entry.
type Favorite struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
}

// Store manages favorites documents.
type Store struct {
	db *sql.DB
}

// NewStore creates a new favorites store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the account's favorites. An account with no saved document
// gets an empty list.
func (s *Store) Get(ctx context.Context, accountID string) ([]Favorite, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("favorites_get", time.Since(start)) }()

	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM favorites WHERE account_id = $1`, accountID).Scan(&doc)
	if err == sql.ErrNoRows {
		return []Favorite{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get favorites: %w", err)
	}

	favorites := []Favorite{}
	if err := json.Unmarshal(doc, &favorites); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return favorites, nil
}

// Set replaces the account's favorites document. The write is
// last-writer-wins for the whole list.
func (s *Store) Set(ctx context.Context, accountID string, favorites []Favorite) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("favorites_set", time.Since(start)) }()

	if favorites == nil {
		favorites = []Favorite{}
	}
	doc, err := json.Marshal(favorites)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorites (account_id, doc, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (account_id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = NOW()`,
		accountID, doc)
	if err != nil {
		return fmt.Errorf("set favorites: %w", err)
	}
	return nil
}
