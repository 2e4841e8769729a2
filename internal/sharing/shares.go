// Package sharing manages share links backed by PostgreSQL.
package sharing

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/webdesk/webdesk/internal/metrics"
)

// Visibility values for a share link.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// ErrNotFound indicates no share exists for the given token.
var ErrNotFound = errors.New("share not found")

// Share is one share link row. An expired share is still returned by
// Resolve; the caller decides how to treat expiry.
type Share struct {
	Token       string
	OwnerID     string
	SourcePath  string
	Visibility  string
	HasPassword bool
	Recipients  []string
	ExpiresAt   *time.Time
	CreatedAt   time.Time

	passwordHash sql.NullString
}

// Expired reports whether the share's expiry has passed.
func (s *Share) Expired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}

// VerifyPassword checks a candidate against the share's password hash.
// Shares without a password accept anything.
func (s *Share) VerifyPassword(candidate string) bool {
	if !s.passwordHash.Valid {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(s.passwordHash.String), []byte(candidate)) == nil
}

// AllowedFor reports whether an account may access a private share.
// Public shares allow everyone; the owner always has access.
func (s *Share) AllowedFor(accountID string) bool {
	if s.Visibility == VisibilityPublic || accountID == s.OwnerID {
		return true
	}
	for _, r := range s.Recipients {
		if r == accountID {
			return true
		}
	}
	return false
}

// Store manages share links.
type Store struct {
	db *sql.DB
}

// NewStore creates a new share store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateParams describes a share to create or refresh.
type CreateParams struct {
	OwnerID    string
	SourcePath string
	Visibility string
	Password   string // empty = no password
	Recipients []string
	ExpiresAt  *time.Time
}

// Create inserts a share link or, when one already exists for the same
// owner and path, updates its settings while keeping the existing token
// so previously handed-out URLs stay valid.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Share, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("share_create", time.Since(start)) }()

	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if p.Visibility != VisibilityPublic && p.Visibility != VisibilityPrivate {
		return nil, fmt.Errorf("invalid visibility %q", p.Visibility)
	}

	var passwordHash sql.NullString
	if p.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = sql.NullString{String: string(hashed), Valid: true}
	}

	recipients := p.Recipients
	if recipients == nil {
		recipients = []string{}
	}

	// Retry on the rare token collision; the token column is unique.
	for attempt := 0; attempt < 3; attempt++ {
		token, err := newToken()
		if err != nil {
			return nil, err
		}

		share := &Share{passwordHash: passwordHash}
		var dbRecipients pq.StringArray
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO shares (token, owner_account_id, source_path, visibility, password_hash, recipients, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (owner_account_id, source_path) DO UPDATE SET
				visibility = EXCLUDED.visibility,
				password_hash = EXCLUDED.password_hash,
				recipients = EXCLUDED.recipients,
				expires_at = EXCLUDED.expires_at
			 RETURNING token, owner_account_id, source_path, visibility, password_hash, recipients, expires_at, created_at`,
			token, p.OwnerID, p.SourcePath, p.Visibility, passwordHash, pq.Array(recipients), p.ExpiresAt).
			Scan(&share.Token, &share.OwnerID, &share.SourcePath, &share.Visibility,
				&share.passwordHash, &dbRecipients, &share.ExpiresAt, &share.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				continue
			}
			return nil, fmt.Errorf("create share: %w", err)
		}
		share.Recipients = dbRecipients
		share.HasPassword = share.passwordHash.Valid
		return share, nil
	}
	return nil, fmt.Errorf("create share: token collision")
}

// Resolve looks up a share by token. Expired shares are returned; check
// Expired before serving content.
func (s *Store) Resolve(ctx context.Context, token string) (*Share, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("share_resolve", time.Since(start)) }()

	share := &Share{}
	var dbRecipients pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT token, owner_account_id, source_path, visibility, password_hash, recipients, expires_at, created_at
		 FROM shares WHERE token = $1`, token).
		Scan(&share.Token, &share.OwnerID, &share.SourcePath, &share.Visibility,
			&share.passwordHash, &dbRecipients, &share.ExpiresAt, &share.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve share: %w", err)
	}
	share.Recipients = dbRecipients
	share.HasPassword = share.passwordHash.Valid
	return share, nil
}

// Revoke removes the share for an owner's path. Revoking a path that has
// no share is not an error.
func (s *Store) Revoke(ctx context.Context, ownerID, sourcePath string) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("share_revoke", time.Since(start)) }()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM shares WHERE owner_account_id = $1 AND source_path = $2`,
		ownerID, sourcePath)
	if err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	return nil
}

// ListByOwner returns all shares created by an account.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Share, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("share_list", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT token, owner_account_id, source_path, visibility, password_hash, recipients, expires_at, created_at
		 FROM shares WHERE owner_account_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		share := &Share{}
		var dbRecipients pq.StringArray
		if err := rows.Scan(&share.Token, &share.OwnerID, &share.SourcePath, &share.Visibility,
			&share.passwordHash, &dbRecipients, &share.ExpiresAt, &share.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		share.Recipients = dbRecipients
		share.HasPassword = share.passwordHash.Valid
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

// ActiveCount returns the number of unexpired shares, for the gauge.
func (s *Store) ActiveCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shares WHERE expires_at IS NULL OR expires_at > NOW()`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count shares: %w", err)
	}
	return count, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
