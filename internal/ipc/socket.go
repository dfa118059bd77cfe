package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning means a live owner already holds the socket.
var ErrAlreadyRunning = errors.New("escriba session already running")

const socketName = "escriba.sock"

// RuntimeSocketPath returns the owner socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// AcquireOptions tunes how Acquire treats an existing socket file.
type AcquireOptions struct {
	// CheckTimeout bounds the status request sent to a possible live owner.
	CheckTimeout time.Duration
	// Retries is how many stale-socket removals are tried before giving up.
	Retries int
	// OnStale runs after a dead owner's socket file was removed.
	OnStale func(path string)
}

// Acquire listens on path and makes the caller the session owner.
//
// A socket whose owner still answers yields ErrAlreadyRunning. One that
// refuses connections is removed and listening is retried. A socket that
// accepts but never answers is left in place.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 150 * time.Millisecond
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if attempt > opts.Retries {
			return nil, fmt.Errorf("acquire socket %s: still in use after %d retries", path, opts.Retries)
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*attempt) * time.Millisecond):
			}
		}

		alive, checkErr := Reachable(ctx, path, opts.CheckTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case checkErr != nil:
			return nil, fmt.Errorf("check existing socket %s: %w", path, checkErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if opts.OnStale != nil {
			opts.OnStale(path)
		}
	}
}
