// Package media negotiates capture encodings against the format the
// transcription boundary accepts.
package media

import (
	"context"
	"time"

	"github.com/outlaylabs/outlay/internal/fault"
)

// TargetMIMEType is the encoding every downstream stage expects: WAV
// containers holding 16kHz mono s16le PCM.
const TargetMIMEType = "audio/wav"

// Capture is a finished audio artifact plus its container metadata.
type Capture struct {
	Bytes    []byte
	MIMEType string
	Duration time.Duration
}

// Transcoder converts a capture to the requested MIME type.
type Transcoder interface {
	Transcode(ctx context.Context, in Capture, targetMIME string) (Capture, error)
}

// Negotiate returns a capture in targetMIME. Captures already in the target
// encoding pass through untouched; everything else goes through the
// transcoder. The input capture is never mutated.
func Negotiate(ctx context.Context, in Capture, targetMIME string, transcoder Transcoder) (Capture, error) {
	if len(in.Bytes) == 0 {
		return Capture{}, fault.New(fault.KindTranscodeFailed, "capture is empty")
	}
	if in.MIMEType == targetMIME {
		return in, nil
	}
	if transcoder == nil {
		return Capture{}, fault.New(fault.KindTranscodeUnavailable,
			"capture encoding "+in.MIMEType+" requires conversion but no transcode backend is configured")
	}

	out, err := transcoder.Transcode(ctx, in, targetMIME)
	if err != nil {
		return Capture{}, err
	}
	if len(out.Bytes) == 0 {
		return Capture{}, fault.New(fault.KindTranscodeFailed, "transcode produced no output")
	}
	out.MIMEType = targetMIME
	if out.Duration == 0 {
		out.Duration = in.Duration
	}
	return out, nil
}
