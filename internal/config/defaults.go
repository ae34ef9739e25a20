package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		OpenAI: OpenAIConfig{
			BaseURL:         "",
			TranscribeModel: "whisper-1",
			ExtractModel:    "gpt-4o-mini",
			TimeoutMS:       30000,
		},
		Transcode: TranscodeConfig{
			Backend: "ffmpeg",
		},
		TranscodeCmd: CommandConfig{},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Identity: IdentityConfig{
			Mode: "static",
		},
		Debug: DebugConfig{},
	}
}
