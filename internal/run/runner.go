package run

import (
	"context"
	"errors"
	"time"

	"github.com/outlaylabs/outlay/internal/fault"
	"github.com/outlaylabs/outlay/internal/ledger"
)

var (
	// ErrPipelineUnavailable indicates runtime capture/extraction wiring is missing.
	ErrPipelineUnavailable = errors.New("audio capture and extraction pipeline not implemented")
	// ErrNoSpeech indicates stop completed but no usable speech was recognized.
	// It carries a fault kind so status clients can tell it apart mechanically.
	ErrNoSpeech error = fault.New(fault.KindNoSpeech, "no speech recognized; check microphone input or mute state")
)

// StopResult is the pipeline output consumed by the run controller.
type StopResult struct {
	Candidate     ledger.Candidate
	Transcript    string
	AudioDevice   string
	BytesCaptured int64
	AudioDuration time.Duration
}

// Runner abstracts the capture/negotiate/transcribe/extract sequence needed
// by run orchestration.
type Runner interface {
	Start(context.Context) error
	StopAndExtract(context.Context) (StopResult, error)
	Cancel(context.Context) error
}

// PlaceholderRunner is a no-op placeholder used in tests/fallback wiring.
type PlaceholderRunner struct{}

func (PlaceholderRunner) Start(context.Context) error {
	return nil
}

func (PlaceholderRunner) StopAndExtract(context.Context) (StopResult, error) {
	return StopResult{}, ErrPipelineUnavailable
}

func (PlaceholderRunner) Cancel(context.Context) error {
	return nil
}
