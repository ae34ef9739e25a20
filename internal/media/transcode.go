package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/fault"
)

// defaultFFmpegArgv converts any input container on stdin to 16kHz mono
// s16le WAV on stdout.
var defaultFFmpegArgv = []string{
	"ffmpeg",
	"-hide_banner", "-loglevel", "error",
	"-i", "pipe:0",
	"-ar", "16000",
	"-ac", "1",
	"-c:a", "pcm_s16le",
	"-f", "wav",
	"pipe:1",
}

// NewTranscoder builds the transcode backend selected by config. The none
// backend returns a nil Transcoder so negotiation can report
// TranscodeUnavailable only when conversion is actually required.
func NewTranscoder(cfg config.Config) (Transcoder, error) {
	switch cfg.Transcode.Backend {
	case "ffmpeg":
		argv := cfg.TranscodeCmd.Argv
		if len(argv) == 0 {
			argv = defaultFFmpegArgv
		}
		return &ExecTranscoder{Argv: argv}, nil
	case "hosted":
		if cfg.Transcode.URL == "" {
			return nil, fault.New(fault.KindTranscodeUnavailable, "transcode.backend hosted requires transcode.url")
		}
		return &HostedTranscoder{URL: cfg.Transcode.URL, Client: &http.Client{Timeout: 30 * time.Second}}, nil
	case "none":
		return nil, nil
	default:
		return nil, fault.New(fault.KindTranscodeUnavailable,
			fmt.Sprintf("unknown transcode backend %q", cfg.Transcode.Backend))
	}
}

// ExecTranscoder pipes the capture through a local encoder subprocess,
// ffmpeg by default.
type ExecTranscoder struct {
	Argv []string
}

// Transcode runs argv with the capture on stdin and reads the converted
// container from stdout.
func (t *ExecTranscoder) Transcode(ctx context.Context, in Capture, targetMIME string) (Capture, error) {
	if len(t.Argv) == 0 {
		return Capture{}, fault.New(fault.KindTranscodeUnavailable, "transcode command argv is empty")
	}
	if _, err := exec.LookPath(t.Argv[0]); err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeUnavailable, t.Argv[0]+" not found in PATH", err)
	}

	cmd := exec.CommandContext(ctx, t.Argv[0], t.Argv[1:]...)
	cmd.Stdin = bytes.NewReader(in.Bytes)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, t.Argv[0]+": "+detail, err)
	}

	return Capture{Bytes: stdout.Bytes(), MIMEType: targetMIME, Duration: in.Duration}, nil
}

// HostedTranscoder posts captures to a remote conversion service.
type HostedTranscoder struct {
	URL    string
	Client *http.Client
}

// Transcode uploads the capture as multipart form data and reads the
// converted bytes from the response body.
func (t *HostedTranscoder) Transcode(ctx context.Context, in Capture, targetMIME string) (Capture, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "capture")
	if err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "build upload form", err)
	}
	if _, err := part.Write(in.Bytes); err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "write upload form", err)
	}
	_ = form.WriteField("source_format", in.MIMEType)
	_ = form.WriteField("target_format", targetMIME)
	if err := form.Close(); err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, &body)
	if err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "build transcode request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "call transcode service", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Capture{}, fault.Wrap(fault.KindTranscodeFailed, "read transcode response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(payload))
		if detail == "" {
			detail = resp.Status
		}
		return Capture{}, fault.New(fault.KindTranscodeFailed,
			fmt.Sprintf("transcode service returned %d: %s", resp.StatusCode, detail))
	}

	return Capture{Bytes: payload, MIMEType: targetMIME, Duration: in.Duration}, nil
}
