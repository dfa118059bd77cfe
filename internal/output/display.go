// Package output presents transcription results: stdout plus an optional clipboard command.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rbright/escriba/internal/speech"
)

const clipboardTimeout = 2 * time.Second

// Display writes each result as one line and optionally copies recognized text.
type Display struct {
	out       io.Writer
	clipboard []string
	logger    *slog.Logger

	mu sync.Mutex
}

// NewDisplay builds a display sink. An empty clipboard argv disables copying.
func NewDisplay(out io.Writer, clipboard []string, logger *slog.Logger) *Display {
	return &Display{out: out, clipboard: clipboard, logger: logger}
}

// Display prints the result text. The empty marker is printed but never copied.
func (d *Display) Display(ctx context.Context, result speech.Result) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out != nil {
		if _, err := fmt.Fprintln(d.out, result.Text); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
	}

	if !result.Found || strings.TrimSpace(result.Text) == "" || len(d.clipboard) == 0 {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, d.clipboard, result.Text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if d.logger != nil {
		d.logger.Debug("transcript copied to clipboard", "chars", len(result.Text))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := io.WriteString(stdin, input); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
