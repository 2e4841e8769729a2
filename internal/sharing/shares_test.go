package sharing

import (
	"database/sql"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestNewTokenFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := newToken()
		if err != nil {
			t.Fatal(err)
		}
		if len(token) != 32 {
			t.Fatalf("token length = %d, want 32", len(token))
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}

func TestShareExpired(t *testing.T) {
	if (&Share{}).Expired() {
		t.Error("share without expiry should not be expired")
	}

	past := time.Now().Add(-time.Hour)
	if !(&Share{ExpiresAt: &past}).Expired() {
		t.Error("past expiry should be expired")
	}

	future := time.Now().Add(time.Hour)
	if (&Share{ExpiresAt: &future}).Expired() {
		t.Error("future expiry should not be expired")
	}
}

func TestShareVerifyPassword(t *testing.T) {
	noPassword := &Share{}
	if !noPassword.VerifyPassword("") || !noPassword.VerifyPassword("anything") {
		t.Error("share without password should accept anything")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	withPassword := &Share{passwordHash: sql.NullString{String: string(hashed), Valid: true}}
	if !withPassword.VerifyPassword("hunter2") {
		t.Error("correct password rejected")
	}
	if withPassword.VerifyPassword("wrong") {
		t.Error("wrong password accepted")
	}
	if withPassword.VerifyPassword("") {
		t.Error("empty password accepted")
	}
}

func TestShareAllowedFor(t *testing.T) {
	public := &Share{OwnerID: "alice", Visibility: VisibilityPublic}
	if !public.AllowedFor("anyone") || !public.AllowedFor("") {
		t.Error("public share should allow everyone")
	}

	private := &Share{
		OwnerID:    "alice",
		Visibility: VisibilityPrivate,
		Recipients: []string{"bob", "carol"},
	}
	if !private.AllowedFor("alice") {
		t.Error("owner should always have access")
	}
	if !private.AllowedFor("bob") || !private.AllowedFor("carol") {
		t.Error("recipients should have access")
	}
	if private.AllowedFor("mallory") || private.AllowedFor("") {
		t.Error("non-recipient should be denied")
	}
}
