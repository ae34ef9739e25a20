// Package config resolves, parses, validates, and defaults outlay configuration.
package config

// Config is the fully materialized runtime configuration used by outlay.
type Config struct {
	Audio        AudioConfig
	OpenAI       OpenAIConfig
	Transcode    TranscodeConfig
	TranscodeCmd CommandConfig
	Store        StoreConfig
	Identity     IdentityConfig
	Debug        DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// OpenAIConfig controls the speech-to-text and extraction boundaries.
type OpenAIConfig struct {
	BaseURL         string
	TranscribeModel string
	ExtractModel    string
	TimeoutMS       int
}

// TranscodeConfig selects the audio conversion backend.
//
// Backend is one of: ffmpeg, hosted, none. The hosted backend posts captures
// to URL; the ffmpeg backend runs a local encoder subprocess, optionally
// overridden by transcode_cmd.
type TranscodeConfig struct {
	Backend string
	URL     string
}

// StoreConfig selects the persisted-items backend.
//
// Backend is one of: sqlite, remote. Path applies to sqlite (empty means the
// XDG data default); URL and Token apply to the remote table service.
type StoreConfig struct {
	Backend string
	Path    string
	URL     string
	Token   string
}

// IdentityConfig controls owner-id resolution for mutating operations.
//
// Mode is one of: static, remote, none. Static reads OwnerID (or the
// OUTLAY_OWNER_ID environment variable); remote queries URL for the current
// session; none refuses all mutating operations.
type IdentityConfig struct {
	Mode    string
	OwnerID string
	URL     string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
