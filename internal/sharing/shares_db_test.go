package sharing

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var shareCols = []string{
	"token", "owner_account_id", "source_path", "visibility",
	"password_hash", "recipients", "expires_at", "created_at",
}

func TestCreateKeepsTokenOnReshare(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	created := time.Now()

	// First share mints a token; re-sharing the same (owner, path) hits
	// the conflict branch and returns the stored token with the second
	// call's settings.
	mock.ExpectQuery("INSERT INTO shares").
		WillReturnRows(sqlmock.NewRows(shareCols).
			AddRow("deadbeefdeadbeefdeadbeefdeadbeef", "alice", "notes.txt", "public",
				nil, "{}", nil, created))
	mock.ExpectQuery("INSERT INTO shares").
		WillReturnRows(sqlmock.NewRows(shareCols).
			AddRow("deadbeefdeadbeefdeadbeefdeadbeef", "alice", "notes.txt", "private",
				"$2a$10$notarealhashbutnotnull", "{bob}", nil, created))

	s := NewStore(db)
	first, err := s.Create(context.Background(), CreateParams{
		OwnerID:    "alice",
		SourcePath: "notes.txt",
	})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	second, err := s.Create(context.Background(), CreateParams{
		OwnerID:    "alice",
		SourcePath: "notes.txt",
		Visibility: VisibilityPrivate,
		Password:   "hunter2",
		Recipients: []string{"bob"},
	})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	if second.Token != first.Token {
		t.Errorf("re-sharing minted a new token: %q vs %q", second.Token, first.Token)
	}
	if second.Visibility != VisibilityPrivate {
		t.Errorf("visibility = %q, want private", second.Visibility)
	}
	if !second.HasPassword {
		t.Error("second share should report a password")
	}
	if len(second.Recipients) != 1 || second.Recipients[0] != "bob" {
		t.Errorf("recipients = %v, want [bob]", second.Recipients)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRetriesOnTokenCollision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO shares").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("INSERT INTO shares").
		WillReturnRows(sqlmock.NewRows(shareCols).
			AddRow("cafebabecafebabecafebabecafebabe", "alice", "a.txt", "public",
				nil, "{}", nil, time.Now()))

	s := NewStore(db)
	share, err := s.Create(context.Background(), CreateParams{
		OwnerID:    "alice",
		SourcePath: "a.txt",
	})
	if err != nil {
		t.Fatalf("Create should retry past a token collision: %v", err)
	}
	if share.Token != "cafebabecafebabecafebabecafebabe" {
		t.Errorf("token = %q", share.Token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
