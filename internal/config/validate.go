package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAI.TranscribeModel) == "" {
		return nil, fmt.Errorf("openai.transcribe_model must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAI.ExtractModel) == "" {
		return nil, fmt.Errorf("openai.extract_model must not be empty")
	}
	if cfg.OpenAI.TimeoutMS <= 0 {
		return nil, fmt.Errorf("openai.timeout_ms must be > 0")
	}

	switch cfg.Transcode.Backend {
	case "ffmpeg", "none":
	case "hosted":
		if cfg.Transcode.URL == "" {
			return nil, fmt.Errorf("transcode.url must not be empty when transcode.backend=hosted")
		}
	default:
		return nil, fmt.Errorf("transcode.backend must be one of: ffmpeg, hosted, none")
	}
	if cfg.TranscodeCmd.Raw != "" && len(cfg.TranscodeCmd.Argv) == 0 {
		return nil, fmt.Errorf("transcode_cmd is configured but empty")
	}

	switch cfg.Store.Backend {
	case "sqlite":
	case "remote":
		if cfg.Store.URL == "" {
			return nil, fmt.Errorf("store.url must not be empty when store.backend=remote")
		}
	default:
		return nil, fmt.Errorf("store.backend must be one of: sqlite, remote")
	}

	switch cfg.Identity.Mode {
	case "static":
		if cfg.Identity.OwnerID == "" {
			warnings = append(warnings, Warning{
				Message: "identity.owner_id is empty; mutating commands will be refused until it (or OUTLAY_OWNER_ID) is set",
			})
		}
	case "remote":
		if cfg.Identity.URL == "" {
			return nil, fmt.Errorf("identity.url must not be empty when identity.mode=remote")
		}
	case "none":
		warnings = append(warnings, Warning{
			Message: "identity.mode=none; mutating commands will be refused",
		})
	default:
		return nil, fmt.Errorf("identity.mode must be one of: static, remote, none")
	}

	return warnings, nil
}
