// Package toolset loads optional per-tool argument overrides from a JSON
// settings file keyed by tool name, e.g.
//
//	{"ffmpeg": ["-threads", "4"], "mkvmerge": ["--quiet"]}
package toolset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings maps a tool name to the extra arguments prepended to every
// invocation of that tool.
type Settings map[string][]string

// Load reads a settings file. A missing file yields empty settings; a
// malformed one is an error so a typo never silently drops overrides.
func Load(path string) (Settings, error) {
	if strings.TrimSpace(path) == "" {
		return Settings{}, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return nil, fmt.Errorf("toolset: read %s: %w", path, err)
	}
	var settings Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil, fmt.Errorf("toolset: parse %s: %w", path, err)
	}
	if settings == nil {
		settings = Settings{}
	}
	return settings, nil
}

// ArgsFor returns the configured extra arguments for a tool. The tool is
// looked up by the base name of its binary path.
func (s Settings) ArgsFor(binary string) []string {
	if len(s) == 0 {
		return nil
	}
	name := filepath.Base(strings.TrimSpace(binary))
	args := s[name]
	if len(args) == 0 {
		return nil
	}
	return append([]string(nil), args...)
}
