package entries

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeleteBatch(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDirectory(root, "/", "dir"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "dir", "nested.txt"); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.Delete(root, []string{"a.txt", "dir", "ghost.txt", SettingsDir})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %v, want a.txt and dir", deleted)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), "dir")); !os.IsNotExist(err) {
		t.Error("dir should be gone recursively")
	}
	// Reserved subtrees survive even when named explicitly.
	if _, err := os.Stat(filepath.Join(root.Path(), SettingsDir)); err != nil {
		t.Error("reserved subtree was deleted")
	}
}

func TestDeleteRootSkipped(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"", "/", "../.."} {
		deleted, err := s.Delete(root, []string{p})
		if err != nil {
			t.Fatalf("Delete(%q): %v", p, err)
		}
		if len(deleted) != 0 {
			t.Errorf("Delete(%q) reported deletions: %v", p, deleted)
		}
	}

	// The root and its reserved subtrees survive; other items in the
	// same batch still go through.
	deleted, err := s.Delete(root, []string{"", "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 1 || deleted[0] != "a.txt" {
		t.Errorf("deleted = %v, want [a.txt]", deleted)
	}
	for _, d := range []string{SettingsDir, LogsDir} {
		if _, err := os.Stat(filepath.Join(root.Path(), d)); err != nil {
			t.Errorf("reserved subtree %s missing after root delete attempt: %v", d, err)
		}
	}
}

func TestMoveRootSkipped(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "dest"); err != nil {
		t.Fatal(err)
	}
	moved, err := s.Move(root, []string{"", "/"}, "dest")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(moved) != 0 {
		t.Errorf("moved = %v, want none", moved)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), SettingsDir)); err != nil {
		t.Errorf("root contents disturbed: %v", err)
	}
}

func TestMoveBatch(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "dest"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "b.txt"); err != nil {
		t.Fatal(err)
	}

	moved, err := s.Move(root, []string{"a.txt", "b.txt"}, "dest")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(moved) != 2 {
		t.Errorf("moved = %v, want both files", moved)
	}
	for _, f := range []string{"a.txt", "b.txt"} {
		if _, err := os.Stat(filepath.Join(root.Path(), "dest", f)); err != nil {
			t.Errorf("%s missing at destination", f)
		}
	}
}

func TestMoveIntoSelfRejected(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDirectory(root, "a", "sub"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "ok.txt"); err != nil {
		t.Fatal(err)
	}

	// Moving a into its own descendant must fail for that item while the
	// rest of the batch still goes through.
	moved, err := s.Move(root, []string{"a", "ok.txt"}, "a/sub")
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if len(be.Items) != 1 || be.Items[0].Path != "a" {
		t.Errorf("failed items = %+v, want only a", be.Items)
	}
	if len(moved) != 1 || moved[0] != "ok.txt" {
		t.Errorf("moved = %v, want ok.txt", moved)
	}
}

func TestMoveDestinationErrors(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Move(root, []string{"a.txt"}, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing destination: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Move(root, []string{"a.txt"}, SettingsDir); !errors.Is(err, ErrSystemEntry) {
		t.Errorf("reserved destination: expected ErrSystemEntry, got %v", err)
	}
	if _, err := s.Move(root, []string{"a.txt"}, "a.txt"); err == nil {
		t.Error("file destination: expected error")
	}
}

func TestMoveCollision(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "dest"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "dest", "a.txt"); err != nil {
		t.Fatal(err)
	}

	_, err := s.Move(root, []string{"a.txt"}, "dest")
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if !errors.Is(be.Items[0].Err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", be.Items[0].Err)
	}
}

func TestSearch(t *testing.T) {
	s, root := testRoot(t)

	if err := s.CreateDirectory(root, "/", "Projects"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "Projects", "report.txt"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFile(root, "/", "REPORT-final.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteFile(root, "/", "notes.md", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(root, "report")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 matches", results)
	}
	paths := map[string]bool{}
	for _, e := range results {
		paths[e.Path] = true
	}
	if !paths["Projects/report.txt"] || !paths["REPORT-final.txt"] {
		t.Errorf("unexpected result paths: %v", paths)
	}
}

func TestSearchExcludesReservedSubtrees(t *testing.T) {
	s, root := testRoot(t)

	inside := filepath.Join(root.Path(), SettingsDir, "theme.json")
	if err := os.WriteFile(inside, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(root, "theme")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("reserved subtree leaked into search: %+v", results)
	}
}

func TestWriteAndOpenFile(t *testing.T) {
	s, root := testRoot(t)

	n, err := s.WriteFile(root, "docs", "hello.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if n != 11 {
		t.Errorf("n = %d, want 11", n)
	}

	rc, info, err := s.OpenFile(root, "docs/hello.txt")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer rc.Close()
	if info.Size() != 11 {
		t.Errorf("size = %d, want 11", info.Size())
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q", data)
	}

	// No stray temp files left behind.
	dirents, err := os.ReadDir(filepath.Join(root.Path(), "docs"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dirents) != 1 {
		t.Errorf("expected exactly one file in docs, got %d", len(dirents))
	}
}

func TestWriteFileIntoReservedSubtree(t *testing.T) {
	s, root := testRoot(t)

	if _, err := s.WriteFile(root, LogsDir, "x.log", strings.NewReader("x")); !errors.Is(err, ErrSystemEntry) {
		t.Errorf("expected ErrSystemEntry, got %v", err)
	}
}

func TestOpenFileMissingAndDirectory(t *testing.T) {
	s, root := testRoot(t)

	if _, _, err := s.OpenFile(root, "nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: expected ErrNotFound, got %v", err)
	}
	if err := s.CreateDirectory(root, "/", "dir"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.OpenFile(root, "dir"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory: expected ErrNotFound, got %v", err)
	}
}
