package fileutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileMode(src, dst, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track01.mp3")
	dst := filepath.Join(dir, "copy.mp3")
	if err := os.WriteFile(src, []byte("ID3 data"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst, 0o640); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ID3 data" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileMode(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), 0o644); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func buildTree(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"Artist - Album/01 - Intro.mp3": "aaaa",
		"Artist - Album/02 - Song.mp3":  "bbbbbbbb",
		"Artist - Album/cover.jpg":      "cc",
		"ripit.log":                     "log",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink("Artist - Album/01 - Intro.mp3", filepath.Join(root, "latest.mp3")); err != nil {
		t.Fatal(err)
	}
}

func TestCopyTree(t *testing.T) {
	for _, verify := range []bool{false, true} {
		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dst := filepath.Join(dir, "dst")
		buildTree(t, src)

		copied, err := CopyTree(context.Background(), src, dst, TreeOptions{Verify: verify})
		if err != nil {
			t.Fatalf("CopyTree(verify=%v): %v", verify, err)
		}
		if copied != 17 {
			t.Fatalf("copied = %d bytes, want 17", copied)
		}
		got, err := os.ReadFile(filepath.Join(dst, "Artist - Album", "02 - Song.mp3"))
		if err != nil || string(got) != "bbbbbbbb" {
			t.Fatalf("copied file = %q, %v", got, err)
		}
		link, err := os.Readlink(filepath.Join(dst, "latest.mp3"))
		if err != nil || link != "Artist - Album/01 - Intro.mp3" {
			t.Fatalf("symlink = %q, %v", link, err)
		}
		size, err := TreeSize(dst)
		if err != nil || size != 17 {
			t.Fatalf("TreeSize = %d, %v; want 17", size, err)
		}
	}
}

func TestCopyTreeRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	buildTree(t, src)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := CopyTree(context.Background(), src, dst, TreeOptions{}); err == nil {
		t.Fatal("expected error when destination exists")
	}
}

func TestCopyTreeHonorsCancel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	buildTree(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CopyTree(ctx, src, filepath.Join(dir, "dst"), TreeOptions{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
