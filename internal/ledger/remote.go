package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/outlaylabs/outlay/internal/fault"
)

// RemoteStore talks to a hosted items table service over HTTP. The service
// scopes rows by the bearer token, so list responses are already filtered to
// the calling owner.
type RemoteStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRemoteStore builds a client for the service rooted at baseURL.
func NewRemoteStore(baseURL, token string) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type remoteItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	OwnerID   string  `json:"user_id"`
	CreatedAt string  `json:"created_at"`
}

type remoteError struct {
	Error string `json:"error"`
}

// Insert posts the candidate and decodes the refreshed newest-first list the
// service returns.
func (s *RemoteStore) Insert(ctx context.Context, candidate Candidate, ownerID string) ([]Item, error) {
	if err := candidate.Validate(); err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "refusing to persist invalid candidate", err)
	}

	payload, err := json.Marshal(map[string]any{
		"name":    candidate.Name,
		"price":   candidate.Price,
		"user_id": ownerID,
	})
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "encode item", err)
	}

	body, err := s.do(ctx, http.MethodPost, "/items", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return decodeItems(body)
}

// List fetches all items, newest first.
func (s *RemoteStore) List(ctx context.Context) ([]Item, error) {
	body, err := s.do(ctx, http.MethodGet, "/items", nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(body)
}

// Delete removes one item by id.
func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodDelete, "/items/"+id, nil)
	return err
}

// Close is a no-op; the store holds no persistent connection.
func (s *RemoteStore) Close() error {
	return nil
}

// do executes one request and returns the raw response body, mapping
// non-2xx responses and their {error} payloads to PersistenceFailed.
func (s *RemoteStore) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "build store request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "call store service", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "read store response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var remoteErr remoteError
		detail := resp.Status
		if json.Unmarshal(payload, &remoteErr) == nil && remoteErr.Error != "" {
			detail = remoteErr.Error
		}
		return nil, fault.New(fault.KindPersistenceFailed,
			fmt.Sprintf("store service returned %d: %s", resp.StatusCode, detail))
	}
	return payload, nil
}

func decodeItems(body []byte) ([]Item, error) {
	var rows []remoteItem
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "decode item list", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			createdAt = time.Time{}
		}
		items = append(items, Item{
			ID:        row.ID,
			Name:      row.Name,
			Price:     row.Price,
			OwnerID:   row.OwnerID,
			CreatedAt: createdAt,
		})
	}
	return items, nil
}
