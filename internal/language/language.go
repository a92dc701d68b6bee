// Package language normalizes ISO 639 language codes found on DVD discs and
// in probe output, and produces human-readable names for track naming.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the tag DVDs and muxers use for streams without a
// declared language.
const Undetermined = "und"

// alt3 maps ISO 639-2/B codes to the 639-2/T form x/text understands.
var alt3 = map[string]string{
	"fre": "fra",
	"ger": "deu",
	"dut": "nld",
	"chi": "zho",
	"cze": "ces",
	"gre": "ell",
	"ice": "isl",
	"rum": "ron",
	"slo": "slk",
	"may": "msa",
	"per": "fas",
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"geo": "kat",
	"mac": "mkd",
	"wel": "cym",
}

var englishNamer = display.English.Languages()

// IsDefinite reports whether a code carries real language information,
// as opposed to being empty or an "undetermined" placeholder.
func IsDefinite(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "", Undetermined, "unk", "mul", "zxx", "00", "xx":
		return false
	}
	return true
}

// Normalize converts any recognized 2- or 3-letter code to its canonical
// ISO 639 base form. Unrecognized input yields Undetermined.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if !IsDefinite(code) {
		return Undetermined
	}
	if mapped, ok := alt3[code]; ok {
		code = mapped
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Undetermined
	}
	base, conf := tag.Base()
	if conf == language.No {
		return Undetermined
	}
	return base.String()
}

// DisplayName returns the English display name for any recognized code.
// Returns "Unknown" for empty or undetermined input and the uppercased code
// for codes x/text cannot name.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if !IsDefinite(trimmed) {
		return "Unknown"
	}
	normalized := Normalize(trimmed)
	if normalized == Undetermined {
		return strings.ToUpper(trimmed)
	}
	tag := language.Make(normalized)
	if name := englishNamer.Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// ExtractFromTags extracts and normalizes the language from stream metadata
// tags. Checks common tag keys used by ffprobe output.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			// IFO-derived tags can carry NUL padding.
			value = strings.TrimSpace(strings.ReplaceAll(value, "\x00", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
