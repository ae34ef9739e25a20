// Package identity resolves the owner id attached to persisted items.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/fault"
)

// Provider resolves the current owner id. Every mutating operation requires
// a non-empty owner; resolution failures surface as Unauthorized.
type Provider interface {
	CurrentUser(ctx context.Context) (string, error)
}

// NewProvider builds the identity backend selected by config.
func NewProvider(cfg config.IdentityConfig) (Provider, error) {
	switch cfg.Mode {
	case "static":
		return &Static{OwnerID: cfg.OwnerID}, nil
	case "remote":
		if cfg.URL == "" {
			return nil, fmt.Errorf("identity.mode remote requires identity.url")
		}
		return &Remote{URL: cfg.URL, Client: &http.Client{Timeout: 10 * time.Second}}, nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Mode)
	}
}

// Static returns a fixed owner id from config, falling back to the
// OUTLAY_OWNER_ID environment variable.
type Static struct {
	OwnerID string
}

func (s *Static) CurrentUser(_ context.Context) (string, error) {
	owner := strings.TrimSpace(s.OwnerID)
	if owner == "" {
		owner = strings.TrimSpace(os.Getenv("OUTLAY_OWNER_ID"))
	}
	if owner == "" {
		return "", fault.New(fault.KindUnauthorized,
			"no owner id configured; set identity.owner_id or OUTLAY_OWNER_ID")
	}
	return owner, nil
}

// Remote asks a session service who the current user is.
type Remote struct {
	URL    string
	Client *http.Client
}

func (r *Remote) CurrentUser(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(r.URL, "/")+"/session", nil)
	if err != nil {
		return "", fault.Wrap(fault.KindUnauthorized, "build session request", err)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.KindUnauthorized, "call session service", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fault.Wrap(fault.KindUnauthorized, "read session response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fault.New(fault.KindUnauthorized,
			fmt.Sprintf("session service returned %d", resp.StatusCode))
	}

	var session struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &session); err != nil {
		return "", fault.Wrap(fault.KindUnauthorized, "decode session response", err)
	}
	if session.UserID == "" {
		return "", fault.New(fault.KindUnauthorized, "session service returned no user")
	}
	return session.UserID, nil
}

// None refuses every mutating operation.
type None struct{}

func (None) CurrentUser(_ context.Context) (string, error) {
	return "", fault.New(fault.KindUnauthorized, "identity.mode is none; mutating operations are disabled")
}
