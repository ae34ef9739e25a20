package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSONCAppliesOverDefaults(t *testing.T) {
	content := `
{
  // capture from the USB mic, fall back to whatever is default
  "audio": {
    "input": "usb",
    "fallback": "default",
  },
  "openai": {
    "extract_model": "o3-mini",
    "timeout_ms": 12000,
  },
  "transcode": {
    "backend": "hosted",
    "url": "http://127.0.0.1:8200/convert",
  },
  "store": {
    "backend": "sqlite",
    "path": "/tmp/items.db",
  },
  "identity": {
    "mode": "static",
    "owner_id": "user-81",
  },
}
`
	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "usb", cfg.Audio.Input)
	require.Equal(t, "default", cfg.Audio.Fallback)
	require.Equal(t, "whisper-1", cfg.OpenAI.TranscribeModel)
	require.Equal(t, "o3-mini", cfg.OpenAI.ExtractModel)
	require.Equal(t, 12000, cfg.OpenAI.TimeoutMS)
	require.Equal(t, "hosted", cfg.Transcode.Backend)
	require.Equal(t, "http://127.0.0.1:8200/convert", cfg.Transcode.URL)
	require.Equal(t, "/tmp/items.db", cfg.Store.Path)
	require.Equal(t, "user-81", cfg.Identity.OwnerID)
}

func TestParseJSONCTranscodeCmdArgv(t *testing.T) {
	content := `{"transcode_cmd": "ffmpeg -hide_banner -loglevel error"}`

	cfg, _, err := Parse(content, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"ffmpeg", "-hide_banner", "-loglevel", "error"}, cfg.TranscodeCmd.Argv)
}

func TestParseJSONCUnknownKeyRejected(t *testing.T) {
	_, _, err := Parse(`{"telemetry": {"endpoint": "127.0.0.1:4317"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCSyntaxErrorReportsLine(t *testing.T) {
	_, _, err := Parse("{\n  \"audio\": {\n    \"input\" \"usb\"\n  }\n}", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseJSONCBlockCommentsStripped(t *testing.T) {
	content := `
{
  /* hosted conversion is only used in CI */
  "transcode": {"backend": "none"}
}
`
	cfg, _, err := Parse(content, Default())
	require.NoError(t, err)
	require.Equal(t, "none", cfg.Transcode.Backend)
}

func TestParseEmptyContentUsesBase(t *testing.T) {
	cfg, _, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseNonObjectContentRejected(t *testing.T) {
	_, _, err := Parse("audio.input = usb", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}
