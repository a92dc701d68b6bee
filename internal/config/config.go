// Package config loads and validates the TOML configuration that drives the
// remux pipeline: directory layout, per-step options, external tool binaries,
// and workflow timing.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Pipeline contains per-title processing options.
type Pipeline struct {
	// TimingMethod is one of "auto", "navigation", "presentation", "probestart".
	TimingMethod string `toml:"timing_method"`
	// TrackNames enables generated track names in the final container.
	TrackNames bool `toml:"track_names"`
	// FallbackLanguage is applied to the first audio track when neither the
	// probe nor the IFO reports a definite language.
	FallbackLanguage string `toml:"fallback_language"`
	// ExtractCaptions enables EIA-608 closed caption extraction.
	ExtractCaptions bool `toml:"extract_captions"`
	// StripVideoCaptions removes embedded caption user data from the
	// extracted video elementary stream.
	StripVideoCaptions bool `toml:"strip_video_captions"`
	// TelecineMode is one of "disabled", "progressive", "interlaced", "auto".
	TelecineMode string `toml:"telecine_mode"`
	// TelecineSampleSeconds bounds the decoded sample in auto mode.
	TelecineSampleSeconds int `toml:"telecine_sample_seconds"`
	// TelecineProgressiveThreshold is the progressive frame percentage at or
	// above which auto mode classifies the title as film.
	TelecineProgressiveThreshold float64 `toml:"telecine_progressive_threshold"`
	// StrictChapters escalates chapter parse or repair failures to title failures.
	StrictChapters bool `toml:"strict_chapters"`
	// KeepMetadataArtifact preserves the per-title metadata JSON after a
	// successful mux.
	KeepMetadataArtifact bool `toml:"keep_metadata_artifact"`
	// SyncAutoFix silently applies moderate timing corrections. When false,
	// moderate skews become review errors instead.
	SyncAutoFix bool `toml:"sync_auto_fix"`
	// SyncWarnThresholdMS is the skew above which corrections are logged.
	SyncWarnThresholdMS int `toml:"sync_warn_threshold_ms"`
	// SyncErrorThresholdMS is the skew above which a stream is treated as corrupt.
	SyncErrorThresholdMS int `toml:"sync_error_threshold_ms"`
}

// Tools contains external tool binary names and the per-tool settings file.
type Tools struct {
	FFprobe      string `toml:"ffprobe"`
	FFmpeg       string `toml:"ffmpeg"`
	MKVMerge     string `toml:"mkvmerge"`
	MKVExtract   string `toml:"mkvextract"`
	CCExtractor  string `toml:"ccextractor"`
	SettingsPath string `toml:"settings_path"`
}

// Workflow contains queue processing timing and disc handling.
type Workflow struct {
	QueuePollInterval  int    `toml:"queue_poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	EjectOnCompletion  bool   `toml:"eject_on_completion"`
	OpticalDrive       string `toml:"optical_drive"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for remuxkit.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipeline Pipeline `toml:"pipeline"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/remuxkit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for queue processing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
