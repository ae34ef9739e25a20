// Package confirm gates extracted candidates behind explicit user approval.
package confirm

import (
	"context"
	"fmt"
	"sync"

	"github.com/outlaylabs/outlay/internal/identity"
	"github.com/outlaylabs/outlay/internal/ledger"
)

// Stage holds the single candidate pending review. All mutation happens
// through Edit, and the only path from candidate to persisted record is
// Accept.
type Stage struct {
	store    ledger.Store
	identity identity.Provider

	mu      sync.Mutex
	pending *ledger.Candidate
}

// NewStage wires the confirmation gate to its persistence collaborators.
func NewStage(store ledger.Store, provider identity.Provider) *Stage {
	return &Stage{store: store, identity: provider}
}

// Hold validates and stores the candidate for review, replacing nothing: a
// second hold while one is pending is a programming error surfaced as such.
func (s *Stage) Hold(candidate ledger.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return fmt.Errorf("a candidate is already pending review")
	}
	normalized := candidate.Normalized()
	if err := normalized.Validate(); err != nil {
		return err
	}
	s.pending = &normalized
	return nil
}

// Pending returns a copy of the candidate under review, if any.
func (s *Stage) Pending() (ledger.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ledger.Candidate{}, false
	}
	return *s.pending, true
}

// Edit updates the pending candidate in place. Nil fields are left alone.
// Invalid edits are rejected whole; the pending candidate never holds a
// partially applied update.
func (s *Stage) Edit(name *string, price *float64) (ledger.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ledger.Candidate{}, fmt.Errorf("no candidate is pending review")
	}

	updated := *s.pending
	if name != nil {
		updated.Name = *name
	}
	if price != nil {
		updated.Price = *price
	}
	updated = updated.Normalized()
	if err := updated.Validate(); err != nil {
		return ledger.Candidate{}, err
	}

	s.pending = &updated
	return updated, nil
}

// Accept persists the pending candidate under the authenticated owner and
// returns the refreshed item list. The candidate is cleared only on success;
// a store failure keeps it pending so accept can be retried.
func (s *Stage) Accept(ctx context.Context) ([]ledger.Item, error) {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no candidate is pending review")
	}
	candidate := *s.pending
	s.mu.Unlock()

	// Network calls happen without holding the stage lock.
	owner, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Insert(ctx, candidate, owner)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return items, nil
}

// Reject discards the pending candidate without persisting anything.
func (s *Stage) Reject() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
