// Package pipeline owns one end-to-end capture -> transcribe -> extract run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/outlaylabs/outlay/internal/audio"
	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/extract"
	"github.com/outlaylabs/outlay/internal/identity"
	"github.com/outlaylabs/outlay/internal/media"
	"github.com/outlaylabs/outlay/internal/run"
	"github.com/outlaylabs/outlay/internal/stt"
)

// Runner sequences one recording through negotiate, transcribe, identity
// check, and extract. It stops on the first failure and never advances with
// partial data.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	transcoder media.Transcoder
	recognizer stt.Recognizer
	extractor  extract.Extractor
	identity   identity.Provider

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   *audio.Capture
}

// NewRunner constructs a pipeline runner from runtime config and its wired
// boundaries.
func NewRunner(
	cfg config.Config,
	logger *slog.Logger,
	transcoder media.Transcoder,
	recognizer stt.Recognizer,
	extractor extract.Extractor,
	provider identity.Provider,
) *Runner {
	return &Runner{
		cfg:        cfg,
		logger:     logger,
		transcoder: transcoder,
		recognizer: recognizer,
		extractor:  extractor,
		identity:   provider,
	}
}

// Start resolves device selection and begins audio capture.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("pipeline already started")
	}

	selection, err := audio.SelectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	r.selection = selection
	if selection.Warning != "" {
		r.logWarn(selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device)
	if err != nil {
		return err
	}
	r.capture = capture

	r.started = true
	return nil
}

// StopAndExtract releases the microphone, finalizes the capture, and runs the
// remaining stages in order.
func (r *Runner) StopAndExtract(ctx context.Context) (run.StopResult, error) {
	r.mu.Lock()
	started := r.started
	capture := r.capture
	selection := r.selection
	r.mu.Unlock()

	if !started || capture == nil {
		return run.StopResult{}, run.ErrPipelineUnavailable
	}

	_ = capture.Stop()

	pcm := capture.PCM()
	result := run.StopResult{
		AudioDevice:   describeDevice(selection.Device),
		BytesCaptured: capture.BytesCaptured(),
		AudioDuration: audio.PCMDuration(len(pcm), audio.SampleRate, audio.Channels),
	}
	r.writeDebugAudio(pcm)

	return r.finalize(ctx, pcm, result)
}

// finalize runs negotiate -> transcribe -> identity -> extract over a
// completed capture.
func (r *Runner) finalize(ctx context.Context, pcm []byte, result run.StopResult) (run.StopResult, error) {
	raw := media.Capture{
		Bytes:    audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels),
		MIMEType: media.TargetMIMEType,
		Duration: result.AudioDuration,
	}

	finalized, err := media.Negotiate(ctx, raw, media.TargetMIMEType, r.transcoder)
	if err != nil {
		return result, err
	}

	transcript, err := r.recognizer.Transcribe(ctx, finalized)
	if err != nil {
		return result, err
	}
	result.Transcript = transcript

	if strings.TrimSpace(transcript) == "" {
		return result, run.ErrNoSpeech
	}

	// Resolve identity before spending an extraction call that could not be
	// persisted anyway.
	if _, err := r.identity.CurrentUser(ctx); err != nil {
		return result, err
	}

	candidate, err := r.extractor.Extract(ctx, transcript)
	if err != nil {
		return result, err
	}
	result.Candidate = candidate

	return result, nil
}

// Cancel stops capture immediately and discards everything recorded.
func (r *Runner) Cancel(_ context.Context) error {
	r.mu.Lock()
	capture := r.capture
	r.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
	}
	return nil
}

// describeDevice formats device metadata for logs/run results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (r *Runner) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

// writeDebugAudio dumps the capture as WAV when debug.audio_dump is enabled.
func (r *Runner) writeDebugAudio(pcm []byte) {
	if !r.cfg.Debug.EnableAudioDump || len(pcm) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Write(audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels)); err != nil {
		r.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// createDebugFile creates timestamped debug artifacts under state/outlay/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "outlay", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns the XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
