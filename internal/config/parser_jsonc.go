package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio     *jsoncAudio     `json:"audio"`
	OpenAI    *jsoncOpenAI    `json:"openai"`
	Transcode *jsoncTranscode `json:"transcode"`
	Store     *jsoncStore     `json:"store"`
	Identity  *jsoncIdentity  `json:"identity"`
	Debug     *jsoncDebug     `json:"debug"`

	TranscodeCmd *string `json:"transcode_cmd"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncOpenAI struct {
	BaseURL         *string `json:"base_url"`
	TranscribeModel *string `json:"transcribe_model"`
	ExtractModel    *string `json:"extract_model"`
	TimeoutMS       *int    `json:"timeout_ms"`
}

type jsoncTranscode struct {
	Backend *string `json:"backend"`
	URL     *string `json:"url"`
}

type jsoncStore struct {
	Backend *string `json:"backend"`
	Path    *string `json:"path"`
	URL     *string `json:"url"`
	Token   *string `json:"token"`
}

type jsoncIdentity struct {
	Mode    *string `json:"mode"`
	OwnerID *string `json:"owner_id"`
	URL     *string `json:"url"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.OpenAI != nil {
		if payload.OpenAI.BaseURL != nil {
			cfg.OpenAI.BaseURL = strings.TrimSpace(*payload.OpenAI.BaseURL)
		}
		if payload.OpenAI.TranscribeModel != nil {
			cfg.OpenAI.TranscribeModel = strings.TrimSpace(*payload.OpenAI.TranscribeModel)
		}
		if payload.OpenAI.ExtractModel != nil {
			cfg.OpenAI.ExtractModel = strings.TrimSpace(*payload.OpenAI.ExtractModel)
		}
		if payload.OpenAI.TimeoutMS != nil {
			cfg.OpenAI.TimeoutMS = *payload.OpenAI.TimeoutMS
		}
	}

	if payload.Transcode != nil {
		if payload.Transcode.Backend != nil {
			cfg.Transcode.Backend = strings.ToLower(strings.TrimSpace(*payload.Transcode.Backend))
		}
		if payload.Transcode.URL != nil {
			cfg.Transcode.URL = strings.TrimSpace(*payload.Transcode.URL)
		}
	}

	if payload.TranscodeCmd != nil {
		raw := *payload.TranscodeCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid transcode_cmd: %w", err)
		}
		cfg.TranscodeCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Store != nil {
		if payload.Store.Backend != nil {
			cfg.Store.Backend = strings.ToLower(strings.TrimSpace(*payload.Store.Backend))
		}
		if payload.Store.Path != nil {
			cfg.Store.Path = strings.TrimSpace(*payload.Store.Path)
		}
		if payload.Store.URL != nil {
			cfg.Store.URL = strings.TrimSpace(*payload.Store.URL)
		}
		if payload.Store.Token != nil {
			cfg.Store.Token = strings.TrimSpace(*payload.Store.Token)
		}
	}

	if payload.Identity != nil {
		if payload.Identity.Mode != nil {
			cfg.Identity.Mode = strings.ToLower(strings.TrimSpace(*payload.Identity.Mode))
		}
		if payload.Identity.OwnerID != nil {
			cfg.Identity.OwnerID = strings.TrimSpace(*payload.Identity.OwnerID)
		}
		if payload.Identity.URL != nil {
			cfg.Identity.URL = strings.TrimSpace(*payload.Identity.URL)
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
