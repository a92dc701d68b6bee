package toolset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(settings) != 0 {
		t.Errorf("expected empty settings, got %v", settings)
	}
}

func TestLoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	payload := `{"ffmpeg": ["-threads", "4"], "mkvmerge": []}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	args := settings.ArgsFor("/usr/bin/ffmpeg")
	if len(args) != 2 || args[0] != "-threads" || args[1] != "4" {
		t.Errorf("unexpected args %v", args)
	}
	if settings.ArgsFor("mkvmerge") != nil {
		t.Error("empty override must yield nil")
	}
	if settings.ArgsFor("ccextractor") != nil {
		t.Error("unknown tool must yield nil")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
