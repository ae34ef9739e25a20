package doctor

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outlaylabs/outlay/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "sk-test")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.TrimSpace(v) != "" },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "transcode_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckTranscodeBackends(t *testing.T) {
	var cfg config.Config

	cfg.Transcode.Backend = "none"
	check := checkTranscode(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "disabled")

	cfg.Transcode.Backend = "ffmpeg"
	cfg.TranscodeCmd.Argv = []string{"sh", "-c", "cat"}
	check = checkTranscode(cfg)
	require.True(t, check.Pass)

	cfg.Transcode.Backend = "wat"
	check = checkTranscode(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unknown backend")
}

func TestCheckService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	check := checkService("transcode.url", server.URL)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable")

	check = checkService("transcode.url", "")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "url is empty")
}

func TestCheckServiceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	check := checkService("transcode.url", server.URL)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 500")
}

func TestCheckStoreSQLite(t *testing.T) {
	var cfg config.Config
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "items.db")

	check := checkStore(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "sqlite backend ready")
}

func TestCheckIdentityStatic(t *testing.T) {
	var cfg config.Config
	cfg.Identity.Mode = "static"
	cfg.Identity.OwnerID = "user-1"

	check := checkIdentity(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, `resolved owner "user-1"`)
}

func TestCheckIdentityNoneFails(t *testing.T) {
	var cfg config.Config
	cfg.Identity.Mode = "none"

	check := checkIdentity(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "mutating operations are disabled")
}
