// Package run coordinates one recording lifecycle: capture, extraction, and
// the confirmation gate, plus the IPC command surface the owner serves.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/outlaylabs/outlay/internal/confirm"
	"github.com/outlaylabs/outlay/internal/fault"
	"github.com/outlaylabs/outlay/internal/fsm"
	"github.com/outlaylabs/outlay/internal/identity"
	"github.com/outlaylabs/outlay/internal/ipc"
	"github.com/outlaylabs/outlay/internal/ledger"
)

// maxRecordingDuration is the hard auto-stop ceiling for one recording.
// Expiry behaves exactly like an external stop request.
const maxRecordingDuration = 10 * time.Second

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// reviewOutcome carries the accept/reject resolution back into Run.
type reviewOutcome struct {
	accepted  bool
	candidate ledger.Candidate
	items     []ledger.Item
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State         fsm.State
	Transcript    string
	Candidate     *ledger.Candidate
	Items         []ledger.Item
	Accepted      bool
	Cancelled     bool
	TimedOut      bool
	Err           error
	AudioDevice   string
	BytesCaptured int64
	AudioDuration time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Controller orchestrates run state transitions and serves owner commands.
type Controller struct {
	logger *slog.Logger
	runner Runner
	stage  *confirm.Stage

	recordLimit time.Duration

	mu         sync.RWMutex
	state      fsm.State
	processing bool
	lastErr    error
	transcript string

	actions    chan action
	reviewDone chan reviewOutcome
}

// NewController constructs a run controller with safe default fallbacks.
func NewController(logger *slog.Logger, runner Runner, stage *confirm.Stage) *Controller {
	if runner == nil {
		runner = PlaceholderRunner{}
	}
	if stage == nil {
		stage = confirm.NewStage(nil, identity.None{})
	}

	return &Controller{
		logger:      logger,
		runner:      runner,
		stage:       stage,
		recordLimit: maxRecordingDuration,
		state:       fsm.StateIdle,
		actions:     make(chan action, 1),
		reviewDone:  make(chan reviewOutcome, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Processing reports whether a pipeline or persistence call is in flight.
func (c *Controller) Processing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processing
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one owner lifecycle from start through accept/reject/cancel
// or failure.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		return result
	}

	// A stale action or review outcome from a previous run must not leak
	// into this one. An accept that raced a cancelled review leaves its
	// outcome buffered in reviewDone.
	select {
	case <-c.actions:
	default:
	}
	select {
	case <-c.reviewDone:
	default:
	}

	c.mu.Lock()
	c.lastErr = nil
	c.transcript = ""
	c.mu.Unlock()

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return finish()
	}

	if err := c.runner.Start(ctx); err != nil {
		c.failWith(err)
		result.Err = err
		return finish()
	}

	timer := time.NewTimer(c.recordLimit)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		_ = c.runner.Cancel(context.Background())
		c.failWith(ctx.Err())
		result.Err = ctx.Err()
		return finish()
	case <-timer.C:
		result.TimedOut = true
	case a := <-c.actions:
		timer.Stop()
		if a == actionCancel {
			_ = c.runner.Cancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return finish()
		}
	}

	if err := c.transition(fsm.EventStop); err != nil {
		c.failWith(err)
		result.Err = err
		return finish()
	}

	c.setProcessing(true)
	stopResult, err := c.runner.StopAndExtract(ctx)
	c.setProcessing(false)

	result.Transcript = stopResult.Transcript
	result.AudioDevice = stopResult.AudioDevice
	result.BytesCaptured = stopResult.BytesCaptured
	result.AudioDuration = stopResult.AudioDuration

	c.mu.Lock()
	c.transcript = stopResult.Transcript
	c.mu.Unlock()

	if err != nil {
		c.failWith(err)
		result.Err = err
		return finish()
	}

	if err := c.stage.Hold(stopResult.Candidate); err != nil {
		c.failWith(err)
		result.Err = err
		return finish()
	}

	if err := c.transition(fsm.EventExtracted); err != nil {
		c.stage.Reject()
		c.failWith(err)
		result.Err = err
		return finish()
	}

	select {
	case <-ctx.Done():
		c.stage.Reject()
		_ = c.transition(fsm.EventReject)
		result.Cancelled = true
		result.Err = ctx.Err()
		return finish()
	case outcome := <-c.reviewDone:
		result.Accepted = outcome.accepted
		candidate := outcome.candidate
		result.Candidate = &candidate
		result.Items = outcome.items
		return finish()
	}
}

// Handle serves IPC commands for the active owner run.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.handleStatus()
	case "toggle", "stop":
		return c.requestStop(req.Command)
	case "cancel":
		return c.requestCancel()
	case "accept":
		return c.handleAccept(ctx)
	case "reject":
		return c.handleReject()
	case "set":
		return c.handleSet(req)
	case "peek":
		return c.handlePeek()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// handleStatus reports state, processing flag, and the current error slot.
func (c *Controller) handleStatus() ipc.Response {
	c.mu.RLock()
	state := c.state
	processing := c.processing
	lastErr := c.lastErr
	transcript := c.transcript
	c.mu.RUnlock()

	resp := ipc.Response{
		OK:         true,
		State:      string(state),
		Processing: processing,
		Message:    "status",
		Transcript: transcript,
	}
	if lastErr != nil {
		resp.Error = lastErr.Error()
		resp.ErrorKind = string(fault.KindOf(lastErr))
	}
	if candidate, ok := c.stage.Pending(); ok {
		resp.Candidate = &ipc.Candidate{Name: candidate.Name, Price: candidate.Price}
	}
	return resp
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	switch state {
	case fsm.StateFinalizing:
		return ipc.Response{OK: false, State: string(state), Error: "already processing the recording"}
	case fsm.StateReviewing:
		return ipc.Response{OK: false, State: string(state), Error: "a candidate is pending review; accept or reject it first"}
	case fsm.StateRecording:
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// beginReviewMutation reserves exclusive access to the pending candidate.
func (c *Controller) beginReviewMutation() *ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateReviewing {
		resp := ipc.Response{OK: false, State: string(c.state), Error: fmt.Sprintf("no candidate to act on in state %s", c.state)}
		return &resp
	}
	if c.processing {
		resp := ipc.Response{OK: false, State: string(c.state), Error: "an accept is already in progress"}
		return &resp
	}
	c.processing = true
	return nil
}

// handleAccept persists the pending candidate. The store call runs without
// holding the state lock; the processing flag keeps the stage exclusive.
func (c *Controller) handleAccept(ctx context.Context) ipc.Response {
	if refusal := c.beginReviewMutation(); refusal != nil {
		return *refusal
	}

	candidate, _ := c.stage.Pending()
	items, err := c.stage.Accept(ctx)

	c.setProcessing(false)

	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return ipc.Response{
			OK:        false,
			State:     string(c.State()),
			Error:     err.Error(),
			ErrorKind: string(fault.KindOf(err)),
		}
	}

	_ = c.transition(fsm.EventAccept)
	c.reviewDone <- reviewOutcome{accepted: true, candidate: candidate, items: items}

	return ipc.Response{
		OK:      true,
		State:   string(c.State()),
		Message: fmt.Sprintf("saved %s for $%.2f", candidate.Name, candidate.Price),
		Items:   toIPCItems(items),
	}
}

// handleReject discards the pending candidate without persisting.
func (c *Controller) handleReject() ipc.Response {
	if refusal := c.beginReviewMutation(); refusal != nil {
		return *refusal
	}

	candidate, _ := c.stage.Pending()
	c.stage.Reject()
	c.setProcessing(false)

	_ = c.transition(fsm.EventReject)
	c.reviewDone <- reviewOutcome{accepted: false, candidate: candidate}

	return ipc.Response{OK: true, State: string(c.State()), Message: "candidate discarded"}
}

// handleSet edits the pending candidate in place.
func (c *Controller) handleSet(req ipc.Request) ipc.Response {
	if refusal := c.beginReviewMutation(); refusal != nil {
		return *refusal
	}
	defer c.setProcessing(false)

	var name *string
	if req.Name != "" {
		name = &req.Name
	}
	if name == nil && req.Price == nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: "set requires --name or --price"}
	}

	updated, err := c.stage.Edit(name, req.Price)
	if err != nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
	}

	return ipc.Response{
		OK:        true,
		State:     string(c.State()),
		Message:   "candidate updated",
		Candidate: &ipc.Candidate{Name: updated.Name, Price: updated.Price},
	}
}

// handlePeek returns the pending candidate and its source transcript.
func (c *Controller) handlePeek() ipc.Response {
	c.mu.RLock()
	state := c.state
	transcript := c.transcript
	c.mu.RUnlock()

	candidate, ok := c.stage.Pending()
	if !ok {
		return ipc.Response{OK: false, State: string(state), Error: "no candidate is pending review"}
	}

	return ipc.Response{
		OK:         true,
		State:      string(state),
		Transcript: transcript,
		Candidate:  &ipc.Candidate{Name: candidate.Name, Price: candidate.Price},
	}
}

// setProcessing flips the processing flag under the state lock.
func (c *Controller) setProcessing(processing bool) {
	c.mu.Lock()
	c.processing = processing
	c.mu.Unlock()
}

// failWith records the failure and resets the FSM to idle best-effort.
func (c *Controller) failWith(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

// toIPCItems converts store rows to their wire representation.
func toIPCItems(items []ledger.Item) []ipc.Item {
	out := make([]ipc.Item, 0, len(items))
	for _, item := range items {
		out = append(out, ipc.Item{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			OwnerID:   item.OwnerID,
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
