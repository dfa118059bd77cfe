package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/escriba/internal/config"
	"github.com/rbright/escriba/internal/indicator"
	"github.com/rbright/escriba/internal/ipc"
	"github.com/rbright/escriba/internal/metrics"
	"github.com/rbright/escriba/internal/output"
	"github.com/rbright/escriba/internal/session"
)

// commandToggle forwards to a live owner, or becomes the owner and records.
func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if code, handled := r.forwardToggle(ctx, socketPath); handled {
		return code
	}

	// Credentials are checked before the microphone is touched.
	stack, err := newStack(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("owner setup failed", "error", err.Error(), "configuration", config.IsConfigurationError(err))
		return 1
	}
	defer func() { _ = stack.Close() }()

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		CheckTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Info("removed stale owner socket", "path", path)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			if code, handled := r.forwardToggle(ctx, socketPath); handled {
				return code
			}
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	notifier := indicator.NewNotifier(cfg.Indicator, logger)
	defer notifier.Flush()

	recorder := metrics.New(cfg.Metrics.Textfile)
	if err := recorder.Restore(); err != nil {
		logger.Warn("metrics restore failed; counting from zero", "error", err.Error())
	}
	last := &lastOutcome{}
	controller := session.NewController(session.Options{
		Recorder:  newRecorder(cfg, logger),
		Processor: stack.processor,
		Sink:      output.NewDisplay(r.Stdout, cfg.Clipboard.Argv, logger),
		Indicator: notifier,
		Observer: session.ObserverFunc(func(o session.Outcome) {
			logOutcome(logger, o)
			recorder.Observe(o)
			last.set(o)
		}),
		Logger: logger,
	})
	defer func() { _ = controller.Close() }()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	if _, err := controller.Start(ctx); err != nil {
		serverCancel()
		<-serverErrCh
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	waitErr := controller.Wait(ctx)
	if waitErr != nil {
		// Interrupted: release the microphone, then let in-flight requests finish.
		_ = controller.Close()
		drainCtx, cancel := context.WithTimeout(context.Background(), stopWaitTimeout(cfg))
		_ = controller.Wait(drainCtx)
		cancel()
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	if err := recorder.Flush(); err != nil {
		logger.Warn("metrics flush failed", "error", err.Error())
	}

	return r.ownerExitCode(controller.Snapshot(), last.get(), waitErr)
}

// forwardToggle reports handled=false when no owner is listening.
func (r Runner) forwardToggle(ctx context.Context, socketPath string) (int, bool) {
	resp, handled, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: "toggle"}, forwardTimeout)
	if !handled {
		return 0, false
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1, true
	}
	r.printResponse(resp)
	return 0, true
}

func (r Runner) ownerExitCode(snap session.Snapshot, last session.Outcome, waitErr error) int {
	if waitErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", waitErr)
		return 1
	}
	if last.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if snap.LastErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", snap.LastErr)
		return 1
	}
	return 0
}

// commandTranscribe sends an existing recording through the same pipeline.
func (r Runner) commandTranscribe(ctx context.Context, cfg config.Config, path string, logger *slog.Logger) int {
	stack, err := newStack(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = stack.Close() }()

	file, format, err := openRecording(path, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer file.Close()

	report, err := stack.processor.ProcessReader(ctx, file, format)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("transcribe file failed", "file", path, "error", err.Error())
		return 1
	}

	display := output.NewDisplay(r.Stdout, cfg.Clipboard.Argv, logger)
	if err := display.Display(ctx, report.Result); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// lastOutcome keeps the most recently finished session.
type lastOutcome struct {
	mu sync.Mutex
	o  session.Outcome
}

func (l *lastOutcome) set(o session.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.o = o
}

func (l *lastOutcome) get() session.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.o
}

func logOutcome(logger *slog.Logger, o session.Outcome) {
	if logger == nil {
		return
	}
	fields := []any{
		"session_id", o.SessionID,
		"seq", o.Seq,
		"status", o.Status(),
		"applied", o.Applied,
		"superseded", o.Superseded,
		"audio_device", o.Device,
		"bytes_captured", o.BytesCaptured,
		"encoded_bytes", o.EncodedBytes,
		"transcript_length", len(o.Result.Text),
		"api_latency_ms", o.Result.Latency.Milliseconds(),
	}
	if !o.StartedAt.IsZero() && !o.FinishedAt.IsZero() {
		fields = append(fields, "duration_ms", o.FinishedAt.Sub(o.StartedAt).Milliseconds())
	}

	if o.Err != nil {
		logger.Error("session failed", append(fields, "error", o.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
