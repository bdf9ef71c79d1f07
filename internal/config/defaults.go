package config

// Default returns the baseline configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  "~/Videos/recast",
			StagingDir: "~/.local/share/recast/staging",
			LogDir:     "~/.local/share/recast/logs",
		},
		Video: Video{
			FPS:       20,
			Monitor:   1,
			Codec:     "XVID",
			Quality:   95,
			Container: "mp4",
		},
		Audio: Audio{
			SampleRate: 48000,
			Channels:   2,
			Bitrate:    "128k",
			DelayMS:    -250,
			AppFilters: []string{"Firefox", "Chrome", "Chromium", "zoom", "Spotify", "discord"},
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
