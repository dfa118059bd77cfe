// Package session coordinates recording lifecycle state, the transcription
// pipeline, and the latest result shown to the user.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/fsm"
	"github.com/rbright/escriba/internal/speech"
)

var (
	// ErrAlreadyRecording rejects a start while a recording is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording rejects a cancel while idle.
	ErrNotRecording = errors.New("not recording")
	// ErrClosed rejects operations after Close.
	ErrClosed = errors.New("session controller closed")
)

// Options wires a Controller. Recorder and Processor are required.
type Options struct {
	Recorder  audio.Recorder
	Processor Processor
	Sink      Sink
	Indicator Indicator
	Observer  Observer
	Logger    *slog.Logger
	// NewID mints session ids; defaults to random UUIDs.
	NewID func() string
}

// Controller owns the idle/recording state and the latest result.
type Controller struct {
	recorder  audio.Recorder
	processor Processor
	sink      Sink
	indicator Indicator
	observer  Observer
	logger    *slog.Logger
	newID     func() string

	mu       sync.Mutex
	state    fsm.State
	starting bool
	closed   bool
	active   *recording
	pending  int
	changed  chan struct{}

	seq        uint64
	appliedSeq uint64
	result     speech.Result
	hasResult  bool
	resultID   string
	lastErr    error

	displayMu sync.Mutex
	// overlayMu orders overlay updates against a newer recording's overlay.
	overlayMu sync.Mutex
}

type recording struct {
	id        string
	seq       uint64
	handle    audio.Handle
	startedAt time.Time
}

// NewController constructs a controller in the idle state.
func NewController(opts Options) *Controller {
	if opts.Recorder == nil || opts.Processor == nil {
		panic("session: recorder and processor are required")
	}
	c := &Controller{
		recorder:  opts.Recorder,
		processor: opts.Processor,
		sink:      opts.Sink,
		indicator: opts.Indicator,
		observer:  opts.Observer,
		logger:    opts.Logger,
		newID:     opts.NewID,
		state:     fsm.StateIdle,
		changed:   make(chan struct{}),
	}
	if c.sink == nil {
		c.sink = SinkFunc(discardSink)
	}
	if c.indicator == nil {
		c.indicator = noopIndicator{}
	}
	if c.observer == nil {
		c.observer = ObserverFunc(discardObserver)
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start acquires the microphone and begins a new recording session.
//
// On failure the controller stays idle and the error is recorded as the
// latest error. Starting is allowed while earlier sessions are still
// transcribing.
func (c *Controller) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.state == fsm.StateRecording || c.starting {
		c.mu.Unlock()
		return "", ErrAlreadyRecording
	}
	c.starting = true
	c.broadcastLocked()
	c.mu.Unlock()

	handle, err := c.recorder.Start(ctx)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.lastErr = err
		c.broadcastLocked()
		c.mu.Unlock()

		c.logError("recording start failed", err)
		c.indicator.ShowError(ctx, "Unable to start recording")
		return "", err
	}
	if c.closed {
		c.broadcastLocked()
		c.mu.Unlock()
		release(handle)
		return "", ErrClosed
	}

	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		c.broadcastLocked()
		c.mu.Unlock()
		release(handle)
		return "", err
	}
	c.state = next
	c.seq++
	rec := &recording{id: c.newID(), seq: c.seq, handle: handle, startedAt: time.Now()}
	c.active = rec
	c.broadcastLocked()
	c.mu.Unlock()

	c.logInfo("recording started", "session_id", rec.id, "seq", rec.seq, "device", handle.Device())
	c.overlayMu.Lock()
	c.indicator.ShowRecording(ctx)
	c.overlayMu.Unlock()
	return rec.id, nil
}

// Stop ends the active recording and transitions to idle immediately.
//
// The returned channel delivers exactly one Outcome once the encode and
// transcription stage finishes, then closes. While idle Stop returns a nil
// channel and no error. Cancelling ctx after Stop returns does not abort the
// pipeline. The stop cue and transcribing overlay run on the pipeline
// goroutine, so Stop never waits on the desktop.
func (c *Controller) Stop(ctx context.Context) (<-chan Outcome, error) {
	c.mu.Lock()
	if c.state != fsm.StateRecording || c.active == nil {
		c.mu.Unlock()
		return nil, nil
	}
	rec, err := c.detachLocked(fsm.EventStop)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.pending++
	c.broadcastLocked()
	c.mu.Unlock()

	rec.handle.Stop()
	stoppedAt := time.Now()
	c.logInfo("recording stopped", "session_id", rec.id, "seq", rec.seq)

	out := make(chan Outcome, 1)
	go c.finish(context.WithoutCancel(ctx), rec, stoppedAt, out)
	return out, nil
}

// Cancel ends the active recording and discards its audio.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state != fsm.StateRecording || c.active == nil {
		c.mu.Unlock()
		return ErrNotRecording
	}
	rec, err := c.detachLocked(fsm.EventCancel)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending++
	c.broadcastLocked()
	c.mu.Unlock()

	stoppedAt := time.Now()
	release(rec.handle)
	c.indicator.CueCancel(ctx)
	c.overlay(ctx, c.indicator.Hide)
	c.logInfo("recording cancelled", "session_id", rec.id, "seq", rec.seq)

	c.observer.Observe(Outcome{
		SessionID:     rec.id,
		Seq:           rec.seq,
		Cancelled:     true,
		Device:        rec.handle.Device(),
		BytesCaptured: rec.handle.BytesCaptured(),
		StartedAt:     rec.startedAt,
		StoppedAt:     stoppedAt,
		FinishedAt:    time.Now(),
	})

	c.mu.Lock()
	c.pending--
	c.broadcastLocked()
	c.mu.Unlock()
	return nil
}

// Close releases any active capture and rejects further starts.
// Pipelines already running are left to finish.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var rec *recording
	if c.state == fsm.StateRecording && c.active != nil {
		rec, _ = c.detachLocked(fsm.EventCancel)
	}
	c.broadcastLocked()
	c.mu.Unlock()

	if rec != nil {
		release(rec.handle)
		c.logInfo("recording released on close", "session_id", rec.id)
	}
	return nil
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:           c.state,
		Result:          c.result,
		HasResult:       c.hasResult,
		ResultSessionID: c.resultID,
		LastErr:         c.lastErr,
		Pending:         c.pending,
	}
	if c.active != nil {
		snap.SessionID = c.active.id
	}
	return snap
}

// Wait blocks until the controller is idle with no pipeline in flight.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.state == fsm.StateIdle && c.pending == 0 && !c.starting {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// finish runs after Stop: collect the blob, run the pipeline, publish.
func (c *Controller) finish(ctx context.Context, rec *recording, stoppedAt time.Time, out chan<- Outcome) {
	c.indicator.CueStop(ctx)
	c.overlay(ctx, c.indicator.ShowTranscribing)

	completion := <-rec.handle.Done()

	outcome := Outcome{
		SessionID:     rec.id,
		Seq:           rec.seq,
		Device:        rec.handle.Device(),
		BytesCaptured: rec.handle.BytesCaptured(),
		StartedAt:     rec.startedAt,
		StoppedAt:     stoppedAt,
	}
	if completion.Err != nil {
		outcome.Err = completion.Err
	} else {
		report, err := c.processor.Process(ctx, completion.Blob)
		outcome.Result = report.Result
		outcome.EncodedBytes = report.EncodedBytes
		outcome.Err = err
	}
	outcome.FinishedAt = time.Now()

	c.publish(&outcome)
	c.present(ctx, outcome)
	c.observer.Observe(outcome)

	c.mu.Lock()
	c.pending--
	c.broadcastLocked()
	c.mu.Unlock()

	out <- outcome
	close(out)
}

// publish applies a successful result unless a newer session already did.
// A failure only becomes the latest error while no newer session has
// applied a result.
func (c *Controller) publish(outcome *Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if outcome.Seq <= c.appliedSeq {
		outcome.Superseded = true
		return
	}
	if outcome.Err != nil {
		c.lastErr = outcome.Err
		return
	}
	c.appliedSeq = outcome.Seq
	c.result = outcome.Result
	c.hasResult = true
	c.resultID = outcome.SessionID
	c.lastErr = nil
	outcome.Applied = true
}

func (c *Controller) present(ctx context.Context, outcome Outcome) {
	if outcome.Err != nil {
		c.logError("session failed", outcome.Err,
			"session_id", outcome.SessionID,
			"status", outcome.Status(),
			"superseded", outcome.Superseded,
		)
		if outcome.Superseded {
			c.overlay(ctx, c.indicator.Hide)
			return
		}
		c.indicator.ShowError(ctx, errorText(outcome))
		return
	}
	if !outcome.Applied {
		c.logInfo("stale result discarded", "session_id", outcome.SessionID, "seq", outcome.Seq)
		c.overlay(ctx, c.indicator.Hide)
		return
	}

	c.displayMu.Lock()
	defer c.displayMu.Unlock()

	c.mu.Lock()
	current := c.appliedSeq == outcome.Seq
	c.mu.Unlock()
	if !current {
		c.overlay(ctx, c.indicator.Hide)
		return
	}

	if err := c.sink.Display(ctx, outcome.Result); err != nil {
		c.logError("display failed", err, "session_id", outcome.SessionID)
		c.indicator.ShowError(ctx, "Output dispatch failed")
		return
	}
	c.indicator.CueComplete(ctx)
	c.overlay(ctx, c.indicator.Hide)
}

// overlay applies a non-recording overlay update unless a newer recording
// owns the overlay.
func (c *Controller) overlay(ctx context.Context, update func(context.Context)) {
	c.overlayMu.Lock()
	defer c.overlayMu.Unlock()
	if c.State() == fsm.StateRecording {
		return
	}
	update(ctx)
}

// detachLocked moves the active recording out of the controller. c.mu must be held.
func (c *Controller) detachLocked(event fsm.Event) (*recording, error) {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return nil, err
	}
	rec := c.active
	c.active = nil
	c.state = next
	return rec, nil
}

func (c *Controller) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// release stops capture and waits for the device to be let go.
func release(handle audio.Handle) {
	handle.Stop()
	<-handle.Done()
}

func errorText(o Outcome) string {
	switch o.Status() {
	case "media_error":
		return "Microphone unavailable"
	case "encoding_error":
		return "Audio encoding failed"
	default:
		return "Speech recognition failed"
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logError(msg string, err error, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, append(args, "error", err.Error())...)
}
