package entries

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webdesk/webdesk/internal/sandbox"
)

func testRoot(t *testing.T) (*Store, sandbox.Root) {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	root, err := s.RootFor("alice")
	if err != nil {
		t.Fatal(err)
	}
	return s, root
}

func TestRootForCreatesReservedSubtrees(t *testing.T) {
	_, root := testRoot(t)
	for _, d := range []string{SettingsDir, LogsDir} {
		info, err := os.Stat(filepath.Join(root.Path(), d))
		if err != nil || !info.IsDir() {
			t.Errorf("reserved subtree %s missing: %v", d, err)
		}
	}
}

func TestRootForRejectsTraversalAccounts(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"../bob", `..\bob`, "a/b", "..", ".", ""} {
		if _, err := s.RootFor(id); err == nil {
			t.Errorf("expected error for account id %q", id)
		}
	}

	// An ID must not normalize into someone else's sandbox.
	if _, err := s.RootFor("bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RootFor("../bob"); err == nil {
		t.Error("traversal id aliased to an existing account")
	}
}

func TestCreateDirectoryAndList(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "Docs"); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}

	list, err := s.List(root, "/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, e := range list {
		if e.Name == "Docs" {
			found = true
			if !e.IsDir {
				t.Error("Docs should be a directory")
			}
		}
	}
	if !found {
		t.Error("Docs not in listing")
	}
}

func TestListOrdering(t *testing.T) {
	s, root := testRoot(t)

	for _, d := range []string{"zeta", "Alpha"} {
		if err := s.CreateDirectory(root, "/", d); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{"beta.txt", "aardvark.txt"} {
		if err := s.CreateFile(root, "/", f); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(root, "/")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range list {
		names = append(names, e.Name)
	}
	// Directories first (including the reserved ones), then files, each
	// group in case-insensitive name order.
	want := []string{LogsDir, SettingsDir, "Alpha", "zeta", "aardvark.txt", "beta.txt"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestListMissingDirectory(t *testing.T) {
	s, root := testRoot(t)

	list, err := s.List(root, "never/created")
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d entries", len(list))
	}
}

func TestListMarksSystemEntries(t *testing.T) {
	s, root := testRoot(t)

	list, err := s.List(root, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range list {
		if (e.Name == SettingsDir || e.Name == LogsDir) != e.IsSystem {
			t.Errorf("entry %s: IsSystem = %v", e.Name, e.IsSystem)
		}
	}
}

func TestCreateCollision(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "a.txt"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if err := s.CreateDirectory(root, "/", "a.txt"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for directory over file, got %v", err)
	}
}

func TestCreateInvalidNames(t *testing.T) {
	s, root := testRoot(t)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "a:b", "a*b"} {
		if err := s.CreateFile(root, "/", name); !errors.Is(err, ErrNameInvalid) {
			t.Errorf("CreateFile(%q): expected ErrNameInvalid, got %v", name, err)
		}
	}
}

func TestRename(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "old.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.Rename(root, "old.txt", "new.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), "new.txt")); err != nil {
		t.Error("renamed file missing")
	}
	if _, err := os.Stat(filepath.Join(root.Path(), "old.txt")); !os.IsNotExist(err) {
		t.Error("old name still present")
	}
}

func TestRenameSystemEntryProtected(t *testing.T) {
	s, root := testRoot(t)

	if err := s.Rename(root, SettingsDir, "x"); !errors.Is(err, ErrSystemEntry) {
		t.Errorf("expected ErrSystemEntry, got %v", err)
	}
	// Entries inside a reserved subtree are protected too.
	if err := s.Rename(root, SettingsDir+"/theme.json", "x"); !errors.Is(err, ErrSystemEntry) {
		t.Errorf("expected ErrSystemEntry below reserved subtree, got %v", err)
	}
}

func TestRenameRootProtected(t *testing.T) {
	s, root := testRoot(t)

	for _, p := range []string{"", "/", "../.."} {
		if err := s.Rename(root, p, "bob"); !errors.Is(err, ErrSystemEntry) {
			t.Errorf("Rename(%q): expected ErrSystemEntry, got %v", p, err)
		}
	}

	// The sandbox must still be where it was, not a sibling of it.
	if _, err := os.Stat(root.Path()); err != nil {
		t.Fatalf("account root missing after rejected rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root.Path()), "bob")); !os.IsNotExist(err) {
		t.Error("account root was renamed to a sibling outside the sandbox")
	}
}

func TestRenameCollisionAndMissing(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "b.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.Rename(root, "a.txt", "b.txt"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if err := s.Rename(root, "ghost.txt", "b.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
