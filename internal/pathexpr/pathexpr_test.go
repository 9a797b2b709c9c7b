package pathexpr

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	writeFile(t, file, "hello")

	entries, err := Resolve(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Trimmed != "notes.txt" {
		t.Errorf("trimmed = %q, want notes.txt", entries[0].Trimmed)
	}
}

func TestResolveDirectoryWalksSubtree(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "project")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")

	entries, err := Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	want := map[string]bool{
		"project\\a.txt":      false,
		"project\\sub\\b.txt": false,
	}
	for _, e := range entries {
		if _, ok := want[e.Trimmed]; !ok {
			t.Errorf("unexpected trimmed path %q", e.Trimmed)
		}
		want[e.Trimmed] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing trimmed path %q", k)
		}
	}
}

func TestResolveMultipleSegments(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "one.txt")
	f2 := filepath.Join(dir, "two.txt")
	writeFile(t, f1, "1")
	writeFile(t, f2, "2")

	entries, err := Resolve(f1 + "?" + f2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestResolveMissingPath(t *testing.T) {
	if _, err := Resolve("/no/such/path/at/all"); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestResolveEmptyExpression(t *testing.T) {
	if _, err := Resolve("   "); err == nil {
		t.Fatal("expected an error for an empty expression")
	}
}
