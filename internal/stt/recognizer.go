// Package stt converts finished audio captures into transcript text.
package stt

import (
	"context"

	"github.com/outlaylabs/outlay/internal/media"
)

// Recognizer produces a transcript from a negotiated capture. An empty
// transcript is a valid result meaning no speech was detected.
type Recognizer interface {
	Transcribe(ctx context.Context, capture media.Capture) (string, error)
}
