package config

import (
	"fmt"
	"strings"
)

var validTimingMethods = map[string]struct{}{
	"auto":         {},
	"navigation":   {},
	"presentation": {},
	"probestart":   {},
}

var validTelecineModes = map[string]struct{}{
	"disabled":    {},
	"progressive": {},
	"interlaced":  {},
	"auto":        {},
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Tools.SettingsPath, err = expandPath(c.Tools.SettingsPath); err != nil {
		return err
	}

	c.Pipeline.TimingMethod = strings.ToLower(strings.TrimSpace(c.Pipeline.TimingMethod))
	c.Pipeline.TelecineMode = strings.ToLower(strings.TrimSpace(c.Pipeline.TelecineMode))
	c.Pipeline.FallbackLanguage = strings.ToLower(strings.TrimSpace(c.Pipeline.FallbackLanguage))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Pipeline.TimingMethod == "" {
		c.Pipeline.TimingMethod = "auto"
	}
	if c.Pipeline.TelecineMode == "" {
		c.Pipeline.TelecineMode = "disabled"
	}
	return nil
}

// Validate checks configuration invariants that cannot be repaired silently.
func (c *Config) Validate() error {
	if _, ok := validTimingMethods[c.Pipeline.TimingMethod]; !ok {
		return fmt.Errorf("pipeline.timing_method: unsupported value %q", c.Pipeline.TimingMethod)
	}
	if _, ok := validTelecineModes[c.Pipeline.TelecineMode]; !ok {
		return fmt.Errorf("pipeline.telecine_mode: unsupported value %q", c.Pipeline.TelecineMode)
	}
	if c.Pipeline.TelecineSampleSeconds <= 0 {
		return fmt.Errorf("pipeline.telecine_sample_seconds must be positive, got %d", c.Pipeline.TelecineSampleSeconds)
	}
	if c.Pipeline.TelecineProgressiveThreshold <= 0 || c.Pipeline.TelecineProgressiveThreshold > 100 {
		return fmt.Errorf("pipeline.telecine_progressive_threshold must be in (0, 100], got %v", c.Pipeline.TelecineProgressiveThreshold)
	}
	if c.Pipeline.SyncWarnThresholdMS < 0 || c.Pipeline.SyncErrorThresholdMS < 0 {
		return fmt.Errorf("pipeline sync thresholds must be non-negative")
	}
	if c.Pipeline.SyncErrorThresholdMS > 0 && c.Pipeline.SyncErrorThresholdMS < c.Pipeline.SyncWarnThresholdMS {
		return fmt.Errorf("pipeline.sync_error_threshold_ms (%d) must not be below sync_warn_threshold_ms (%d)",
			c.Pipeline.SyncErrorThresholdMS, c.Pipeline.SyncWarnThresholdMS)
	}
	if c.Workflow.QueuePollInterval <= 0 {
		return fmt.Errorf("workflow.queue_poll_interval must be positive, got %d", c.Workflow.QueuePollInterval)
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return fmt.Errorf("workflow.error_retry_interval must be positive, got %d", c.Workflow.ErrorRetryInterval)
	}
	for name, value := range map[string]string{
		"tools.ffprobe":    c.Tools.FFprobe,
		"tools.ffmpeg":     c.Tools.FFmpeg,
		"tools.mkvmerge":   c.Tools.MKVMerge,
		"tools.mkvextract": c.Tools.MKVExtract,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: binary name required", name)
		}
	}
	return nil
}
