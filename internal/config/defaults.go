package config

// Default returns the built-in configuration values applied before any file
// is read.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: "~/.local/share/remuxkit/staging",
			OutputDir:  "~/remuxkit-output",
			LogDir:     "~/.local/share/remuxkit/logs",
		},
		Pipeline: Pipeline{
			TimingMethod:                 "auto",
			TrackNames:                   true,
			FallbackLanguage:             "en",
			ExtractCaptions:              true,
			StripVideoCaptions:           false,
			TelecineMode:                 "auto",
			TelecineSampleSeconds:        90,
			TelecineProgressiveThreshold: 60,
			StrictChapters:               false,
			KeepMetadataArtifact:         false,
			SyncAutoFix:                  true,
			SyncWarnThresholdMS:          500,
			SyncErrorThresholdMS:         10000,
		},
		Tools: Tools{
			FFprobe:      "ffprobe",
			FFmpeg:       "ffmpeg",
			MKVMerge:     "mkvmerge",
			MKVExtract:   "mkvextract",
			CCExtractor:  "ccextractor",
			SettingsPath: "~/.config/remuxkit/tools.json",
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			EjectOnCompletion:  false,
			OpticalDrive:       "/dev/sr0",
		},
		Logging: Logging{
			Format: "",
			Level:  "info",
		},
	}
}
