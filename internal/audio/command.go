package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultStopGrace    = 2 * time.Second
	defaultStartupGrace = 150 * time.Millisecond
	stderrTailBytes     = 2048
)

// CommandRecorder records by running an external process that writes the
// encoded stream to stdout until it receives SIGINT.
type CommandRecorder struct {
	Argv   []string
	Format Format

	// StopGrace bounds how long the process may take to finalize after SIGINT
	// before it is killed.
	StopGrace time.Duration
	// StartupGrace is how long Start waits for an early exit, which is how
	// ffmpeg reports an unavailable device or denied access.
	StartupGrace time.Duration
}

// Start launches the recorder process.
func (r CommandRecorder) Start(ctx context.Context) (Handle, error) {
	if len(r.Argv) == 0 {
		return nil, &MediaAccessError{Err: errors.New("recorder command is empty")}
	}

	grace := r.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	grace := r.StartupGrace
	if grace <= 0 {
		grace = defaultStartupGrace
	}

	h := &commandHandle{
		name:   r.Argv[0],
		format: r.Format,
		grace:  grace,
		exited: make(chan struct{}),
		done:   make(chan Completion, 1),
	}

	cmd := exec.Command(r.Argv[0], r.Argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr
	cmd.WaitDelay = grace
	if err := cmd.Start(); err != nil {
		return nil, &MediaAccessError{Device: h.name, Err: fmt.Errorf("start recorder: %w", err)}
	}
	h.cmd = cmd

	go h.wait()

	select {
	case <-h.exited:
		if h.waitErr != nil {
			return nil, &MediaAccessError{Device: h.name, Err: h.exitError()}
		}
	case <-time.After(grace):
	case <-ctx.Done():
		h.Stop()
		return nil, ctx.Err()
	}

	go func() {
		select {
		case <-ctx.Done():
			h.Stop()
		case <-h.exited:
		}
	}()

	return h, nil
}

type commandHandle struct {
	name   string
	format Format
	grace  time.Duration
	cmd    *exec.Cmd

	stdout countingBuffer
	stderr tailBuffer

	stopOnce sync.Once
	stopping atomic.Bool

	exited  chan struct{}
	waitErr error
	done    chan Completion
}

func (h *commandHandle) Done() <-chan Completion {
	return h.done
}

func (h *commandHandle) Device() string {
	return h.name
}

func (h *commandHandle) BytesCaptured() int64 {
	return h.stdout.Len()
}

// Stop interrupts the recorder so it can finalize its container, then kills it
// if it has not exited within the grace period. It does not wait for exit.
func (h *commandHandle) Stop() {
	h.stopOnce.Do(func() {
		h.stopping.Store(true)

		select {
		case <-h.exited:
			return
		default:
		}

		if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = h.cmd.Process.Kill()
			return
		}

		timer := time.AfterFunc(h.grace, func() {
			_ = h.cmd.Process.Kill()
		})
		go func() {
			<-h.exited
			timer.Stop()
		}()
	})
}

func (h *commandHandle) wait() {
	h.waitErr = h.cmd.Wait()
	close(h.exited)

	blob := Blob{Data: h.stdout.Bytes(), Format: h.format}
	if h.waitErr != nil && !h.stopping.Load() {
		finish(h.done, Completion{Blob: blob, Err: &MediaAccessError{Device: h.name, Err: h.exitError()}})
		return
	}
	finish(h.done, Completion{Blob: blob})
}

func (h *commandHandle) exitError() error {
	tail := strings.TrimSpace(h.stderr.String())
	if tail == "" {
		return fmt.Errorf("recorder exited: %w", h.waitErr)
	}
	return fmt.Errorf("recorder exited: %w: %s", h.waitErr, tail)
}

// countingBuffer is the recorder's stdout sink.
type countingBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	n   atomic.Int64
}

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	b.n.Add(int64(n))
	return n, err
}

func (b *countingBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *countingBuffer) Len() int64 {
	return b.n.Load()
}

// tailBuffer keeps the last stderrTailBytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - stderrTailBytes; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
