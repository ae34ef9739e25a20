// Package doctor runs runtime readiness diagnostics for config, secrets,
// audio, and the persistence/identity backends.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/outlaylabs/outlay/internal/audio"
	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/identity"
	"github.com/outlaylabs/outlay/internal/ledger"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv("OPENAI_API_KEY", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "API key is set", "OPENAI_API_KEY is empty; transcription and extraction will fail"))

	checks = append(checks, checkTranscode(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkStore(cfg.Config))
	checks = append(checks, checkIdentity(cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkTranscode validates the configured conversion backend.
func checkTranscode(cfg config.Config) Check {
	switch cfg.Transcode.Backend {
	case "ffmpeg":
		if len(cfg.TranscodeCmd.Argv) > 0 {
			return checkCommand(cfg.TranscodeCmd.Argv, "transcode_cmd")
		}
		return checkBinary("ffmpeg", "transcode backend is ready")
	case "hosted":
		return checkService("transcode.url", cfg.Transcode.URL)
	case "none":
		return Check{Name: "transcode", Pass: true, Message: "backend disabled; only native WAV captures are processed"}
	default:
		return Check{Name: "transcode", Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Transcode.Backend)}
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkService probes an HTTP endpoint for basic reachability.
func checkService(name string, rawURL string) Check {
	base := strings.TrimSpace(rawURL)
	if base == "" {
		return Check{Name: name, Pass: false, Message: "url is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Head(base)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", base)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkStore opens the configured store and lists once to prove readiness.
func checkStore(cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	store, err := ledger.NewStore(ctx, cfg.Store)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	defer store.Close()

	items, err := store.List(ctx)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("%s backend ready (%d items)", cfg.Store.Backend, len(items))}
}

// checkIdentity resolves the current owner to prove mutations are possible.
func checkIdentity(cfg config.Config) Check {
	provider, err := identity.NewProvider(cfg.Identity)
	if err != nil {
		return Check{Name: "identity", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	owner, err := provider.CurrentUser(ctx)
	if err != nil {
		return Check{Name: "identity", Pass: false, Message: err.Error()}
	}
	return Check{Name: "identity", Pass: true, Message: fmt.Sprintf("resolved owner %q", owner)}
}
