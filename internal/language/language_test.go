package language_test

import (
	"testing"

	"remuxkit/internal/language"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"en":      "en",
		"eng":     "en",
		"fre":     "fr",
		"fra":     "fr",
		"ger":     "de",
		"ja":      "ja",
		"und":     "und",
		"":        "und",
		"zz1":     "und",
		" EN ":    "en",
		"chinese": "und",
	}
	for input, want := range cases {
		if got := language.Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsDefinite(t *testing.T) {
	for _, code := range []string{"en", "fra", "ja"} {
		if !language.IsDefinite(code) {
			t.Errorf("IsDefinite(%q) = false", code)
		}
	}
	for _, code := range []string{"", "und", "unk", "zxx", "  "} {
		if language.IsDefinite(code) {
			t.Errorf("IsDefinite(%q) = true", code)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"en":  "English",
		"fre": "French",
		"ja":  "Japanese",
		"und": "Unknown",
		"":    "Unknown",
	}
	for input, want := range cases {
		if got := language.DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractFromTags(t *testing.T) {
	got := language.ExtractFromTags(map[string]string{"LANGUAGE": " ENG "})
	if got != "eng" {
		t.Fatalf("ExtractFromTags = %q", got)
	}
	if language.ExtractFromTags(nil) != "" {
		t.Fatal("nil tags should yield empty string")
	}
	if got := language.ExtractFromTags(map[string]string{"language": "en\x00\x00"}); got != "en" {
		t.Fatalf("NUL-padded tag = %q", got)
	}
	if language.ExtractFromTags(map[string]string{"language": "\x00\x00"}) != "" {
		t.Fatal("all-padding tag should yield empty string")
	}
}
