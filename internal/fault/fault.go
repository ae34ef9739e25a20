// Package fault defines the failure taxonomy shared by every pipeline stage.
package fault

import "errors"

// Kind is the machine-distinguishable failure category of a pipeline run.
type Kind string

const (
	KindDeviceUnavailable    Kind = "device_unavailable"
	KindUnsupportedFormat    Kind = "unsupported_format"
	KindTranscodeUnavailable Kind = "transcode_unavailable"
	KindTranscodeFailed      Kind = "transcode_failed"
	KindTranscriptionFailed  Kind = "transcription_failed"
	KindExtractionInvalid    Kind = "extraction_invalid"
	KindNoSpeech             Kind = "no_speech"
	KindUnauthorized         Kind = "unauthorized"
	KindPersistenceFailed    Kind = "persistence_failed"
)

// Fault pairs one human-readable message with a failure kind and optional cause.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds a fault with no underlying cause.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap builds a fault preserving the underlying cause for errors.Is/As chains.
func Wrap(kind Kind, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

func (f *Fault) Error() string {
	if f.Cause == nil {
		return f.Message
	}
	return f.Message + ": " + f.Cause.Error()
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// KindOf extracts the failure kind from an error chain, or "" when the error
// is not a pipeline fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether err carries the given failure kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
