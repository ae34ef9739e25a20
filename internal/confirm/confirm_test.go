package confirm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outlaylabs/outlay/internal/fault"
	"github.com/outlaylabs/outlay/internal/ledger"
)

type fakeStore struct {
	inserted []ledger.Candidate
	owner    string
	items    []ledger.Item
	err      error
}

func (f *fakeStore) Insert(_ context.Context, candidate ledger.Candidate, ownerID string) ([]ledger.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, candidate)
	f.owner = ownerID
	return f.items, nil
}

func (f *fakeStore) List(context.Context) ([]ledger.Item, error) { return f.items, nil }
func (f *fakeStore) Delete(context.Context, string) error        { return nil }
func (f *fakeStore) Close() error                                { return nil }

type fakeIdentity struct {
	owner string
	err   error
}

func (f *fakeIdentity) CurrentUser(context.Context) (string, error) {
	return f.owner, f.err
}

func pendingStage(t *testing.T, store *fakeStore, provider *fakeIdentity) *Stage {
	t.Helper()
	stage := NewStage(store, provider)
	require.NoError(t, stage.Hold(ledger.Candidate{Name: "macbook pro", Price: 1999}))
	return stage
}

func TestHoldNormalizesAndExposesPending(t *testing.T) {
	stage := pendingStage(t, &fakeStore{}, &fakeIdentity{owner: "user-1"})

	candidate, ok := stage.Pending()
	require.True(t, ok)
	require.Equal(t, "Macbook Pro", candidate.Name)
	require.Equal(t, float64(1999), candidate.Price)
}

func TestHoldRejectsInvalidCandidate(t *testing.T) {
	stage := NewStage(&fakeStore{}, &fakeIdentity{owner: "user-1"})
	require.Error(t, stage.Hold(ledger.Candidate{Name: " ", Price: 1}))

	_, ok := stage.Pending()
	require.False(t, ok)
}

func TestHoldRefusesSecondCandidate(t *testing.T) {
	stage := pendingStage(t, &fakeStore{}, &fakeIdentity{owner: "user-1"})
	require.Error(t, stage.Hold(ledger.Candidate{Name: "Soap", Price: 3}))
}

func TestEditAppliesPartialUpdate(t *testing.T) {
	stage := pendingStage(t, &fakeStore{}, &fakeIdentity{owner: "user-1"})

	price := 1899.0
	updated, err := stage.Edit(nil, &price)
	require.NoError(t, err)
	require.Equal(t, "Macbook Pro", updated.Name)
	require.Equal(t, 1899.0, updated.Price)

	name := "macbook pro 14"
	updated, err = stage.Edit(&name, nil)
	require.NoError(t, err)
	require.Equal(t, "Macbook Pro 14", updated.Name)
	require.Equal(t, 1899.0, updated.Price)
}

func TestEditRejectsInvalidUpdateWithoutPartialApply(t *testing.T) {
	stage := pendingStage(t, &fakeStore{}, &fakeIdentity{owner: "user-1"})

	name := ""
	price := 1899.0
	_, err := stage.Edit(&name, &price)
	require.Error(t, err)

	candidate, ok := stage.Pending()
	require.True(t, ok)
	require.Equal(t, "Macbook Pro", candidate.Name)
	require.Equal(t, float64(1999), candidate.Price)
}

func TestEditWithoutPendingCandidate(t *testing.T) {
	stage := NewStage(&fakeStore{}, &fakeIdentity{owner: "user-1"})

	name := "Soap"
	_, err := stage.Edit(&name, nil)
	require.Error(t, err)
}

func TestAcceptPersistsUnderAuthenticatedOwner(t *testing.T) {
	store := &fakeStore{items: []ledger.Item{{ID: "a", Name: "Macbook Pro", Price: 1999, OwnerID: "user-1"}}}
	stage := pendingStage(t, store, &fakeIdentity{owner: "user-1"})

	items, err := stage.Accept(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "user-1", store.owner)
	require.Equal(t, "Macbook Pro", store.inserted[0].Name)

	_, ok := stage.Pending()
	require.False(t, ok)
}

func TestAcceptUnauthorizedKeepsCandidate(t *testing.T) {
	provider := &fakeIdentity{err: fault.New(fault.KindUnauthorized, "no session")}
	stage := pendingStage(t, &fakeStore{}, provider)

	_, err := stage.Accept(context.Background())
	require.Error(t, err)
	require.Equal(t, fault.KindUnauthorized, fault.KindOf(err))

	_, ok := stage.Pending()
	require.True(t, ok)
}

func TestAcceptStoreFailureKeepsCandidateForRetry(t *testing.T) {
	store := &fakeStore{err: fault.New(fault.KindPersistenceFailed, "disk full")}
	stage := pendingStage(t, store, &fakeIdentity{owner: "user-1"})

	_, err := stage.Accept(context.Background())
	require.Error(t, err)
	require.Equal(t, fault.KindPersistenceFailed, fault.KindOf(err))

	_, ok := stage.Pending()
	require.True(t, ok)

	store.err = nil
	store.items = []ledger.Item{{ID: "a", Name: "Macbook Pro", Price: 1999, OwnerID: "user-1"}}
	items, err := stage.Accept(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, ok = stage.Pending()
	require.False(t, ok)
}

func TestRejectDiscardsPendingCandidate(t *testing.T) {
	store := &fakeStore{}
	stage := pendingStage(t, store, &fakeIdentity{owner: "user-1"})

	stage.Reject()

	_, ok := stage.Pending()
	require.False(t, ok)
	require.Empty(t, store.inserted)

	// the stage is reusable for the next run
	require.NoError(t, stage.Hold(ledger.Candidate{Name: "Soap", Price: 3}))
}
