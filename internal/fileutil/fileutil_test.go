package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"remuxkit/internal/fileutil"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("dst = %q, %v", data, err)
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := fileutil.FileSize(path); got != 42 {
		t.Fatalf("FileSize = %d", got)
	}
	if got := fileutil.FileSize(filepath.Join(dir, "missing")); got != 0 {
		t.Fatalf("missing FileSize = %d", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"My Movie: Part 2/3": "My Movie- Part 2-3",
		"  spaced  ":         "spaced",
		"trailing dots...":   "trailing dots",
		"a\\b|c<d>e?f*g\"h":  "a-bcdefgh",
	}
	for input, want := range cases {
		if got := fileutil.SanitizeName(input); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestUniqueDirAppendsSuffix(t *testing.T) {
	base := t.TempDir()
	first, err := fileutil.UniqueDir(base, "disc")
	if err != nil {
		t.Fatalf("UniqueDir: %v", err)
	}
	second, err := fileutil.UniqueDir(base, "disc")
	if err != nil {
		t.Fatalf("UniqueDir second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct dirs, got %q twice", first)
	}
	if filepath.Base(second) != "disc-1" {
		t.Fatalf("second dir = %q", second)
	}
}
