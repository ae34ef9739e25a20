package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsWarnAboutMissingOwner(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "owner_id")
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty audio input",
			mutate:  func(c *Config) { c.Audio.Input = " " },
			wantErr: "audio.input",
		},
		{
			name:    "empty transcribe model",
			mutate:  func(c *Config) { c.OpenAI.TranscribeModel = "" },
			wantErr: "openai.transcribe_model",
		},
		{
			name:    "empty extract model",
			mutate:  func(c *Config) { c.OpenAI.ExtractModel = "" },
			wantErr: "openai.extract_model",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.OpenAI.TimeoutMS = 0 },
			wantErr: "openai.timeout_ms",
		},
		{
			name:    "unknown transcode backend",
			mutate:  func(c *Config) { c.Transcode.Backend = "sox" },
			wantErr: "transcode.backend",
		},
		{
			name:    "hosted transcode without url",
			mutate:  func(c *Config) { c.Transcode.Backend = "hosted" },
			wantErr: "transcode.url",
		},
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: "store.backend",
		},
		{
			name:    "remote store without url",
			mutate:  func(c *Config) { c.Store.Backend = "remote" },
			wantErr: "store.url",
		},
		{
			name:    "unknown identity mode",
			mutate:  func(c *Config) { c.Identity.Mode = "oauth" },
			wantErr: "identity.mode",
		},
		{
			name:    "remote identity without url",
			mutate:  func(c *Config) { c.Identity.Mode = "remote" },
			wantErr: "identity.url",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateIdentityNoneWarns(t *testing.T) {
	cfg := Default()
	cfg.Identity.Mode = "none"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "refused")
}
