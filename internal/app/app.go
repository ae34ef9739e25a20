// Package app wires parsed commands to the owner process, the control
// socket, and the persistence backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/outlaylabs/outlay/internal/audio"
	"github.com/outlaylabs/outlay/internal/cli"
	"github.com/outlaylabs/outlay/internal/confirm"
	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/doctor"
	"github.com/outlaylabs/outlay/internal/extract"
	"github.com/outlaylabs/outlay/internal/identity"
	"github.com/outlaylabs/outlay/internal/ipc"
	"github.com/outlaylabs/outlay/internal/ledger"
	"github.com/outlaylabs/outlay/internal/logging"
	"github.com/outlaylabs/outlay/internal/media"
	"github.com/outlaylabs/outlay/internal/pipeline"
	"github.com/outlaylabs/outlay/internal/run"
	"github.com/outlaylabs/outlay/internal/stt"
	"github.com/outlaylabs/outlay/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("outlay"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("outlay"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	// .env is optional; real environments set OPENAI_API_KEY directly.
	_ = godotenv.Load()

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: "stop"})
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.Request{Command: "cancel"})
	case cli.CommandAccept:
		return r.forwardOrFail(ctx, ipc.Request{Command: "accept"})
	case cli.CommandReject:
		return r.forwardOrFail(ctx, ipc.Request{Command: "reject"})
	case cli.CommandSet:
		return r.forwardOrFail(ctx, ipc.Request{Command: "set", Name: parsed.Name, Price: parsed.Price})
	case cli.CommandPeek:
		return r.commandPeek(ctx)
	case cli.CommandItems:
		return r.commandItems(ctx, cfgLoaded.Config)
	case cli.CommandDelete:
		return r.commandDelete(ctx, cfgLoaded.Config, parsed.ID)
	case cli.CommandRecord:
		return r.commandRecord(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "status"})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		r.printStatus(resp)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// printStatus renders the owner's status response for humans.
func (r Runner) printStatus(resp ipc.Response) {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	fmt.Fprintln(r.Stdout, state)
	if resp.Processing {
		fmt.Fprintln(r.Stdout, "processing: yes")
	}
	if resp.Candidate != nil {
		fmt.Fprintf(r.Stdout, "candidate: %s ($%.2f)\n", resp.Candidate.Name, resp.Candidate.Price)
	}
	if resp.Error != "" {
		fmt.Fprintf(r.Stdout, "last error: %s", resp.Error)
		if resp.ErrorKind != "" {
			fmt.Fprintf(r.Stdout, " (%s)", resp.ErrorKind)
		}
		fmt.Fprintln(r.Stdout)
	}
}

func (r Runner) commandPeek(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "peek"})
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active outlay session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if resp.Candidate != nil {
		fmt.Fprintf(r.Stdout, "%s ($%.2f)\n", resp.Candidate.Name, resp.Candidate.Price)
	}
	if resp.Transcript != "" {
		fmt.Fprintf(r.Stdout, "transcript: %s\n", resp.Transcript)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active outlay session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if resp.Candidate != nil {
		fmt.Fprintf(r.Stdout, "%s ($%.2f)\n", resp.Candidate.Name, resp.Candidate.Price)
	}
	return 0
}

func (r Runner) commandItems(ctx context.Context, cfg config.Config) int {
	store, err := ledger.NewStore(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	items, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(items) == 0 {
		fmt.Fprintln(r.Stdout, "no items saved")
		return 0
	}

	for _, item := range items {
		fmt.Fprintf(r.Stdout, "%s  %-30s $%8.2f  %s\n",
			item.ID, item.Name, item.Price, item.CreatedAt.Format("2006-01-02 15:04"))
	}
	return 0
}

func (r Runner) commandDelete(ctx context.Context, cfg config.Config, id string) int {
	provider, err := identity.NewProvider(cfg.Identity)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if _, err := provider.CurrentUser(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	store, err := ledger.NewStore(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Delete(ctx, id); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "deleted %s\n", id)
	return 0
}

func (r Runner) commandRecord(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	// An existing owner means record toggles the active run.
	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "toggle"})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.Request{Command: "toggle"})
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, store, err := buildController(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logRunResult(logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if result.Accepted && result.Candidate != nil {
		fmt.Fprintf(r.Stdout, "saved %s for $%.2f\n", result.Candidate.Name, result.Candidate.Price)
	} else if result.Candidate != nil {
		fmt.Fprintf(r.Stdout, "discarded %s ($%.2f)\n", result.Candidate.Name, result.Candidate.Price)
	}

	return 0
}

// buildController wires the full capture/extract/confirm stack for one owner
// process.
func buildController(ctx context.Context, cfg config.Config, logger *slog.Logger) (*run.Controller, ledger.Store, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")

	recognizer, err := stt.NewOpenAIRecognizer(cfg.OpenAI, apiKey)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := extract.NewOpenAIExtractor(cfg.OpenAI, apiKey)
	if err != nil {
		return nil, nil, err
	}
	transcoder, err := media.NewTranscoder(cfg)
	if err != nil {
		return nil, nil, err
	}
	provider, err := identity.NewProvider(cfg.Identity)
	if err != nil {
		return nil, nil, err
	}
	store, err := ledger.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	runner := pipeline.NewRunner(cfg, logger, transcoder, recognizer, extractor, provider)
	stage := confirm.NewStage(store, provider)
	return run.NewController(logger, runner, stage), store, nil
}

func logRunResult(logger *slog.Logger, result run.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"accepted", result.Accepted,
		"cancelled", result.Cancelled,
		"timed_out", result.TimedOut,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"audio_ms", result.AudioDuration.Milliseconds(),
		"transcript_length", len(result.Transcript),
	}

	if result.Err != nil {
		logger.Error("run failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("run complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
