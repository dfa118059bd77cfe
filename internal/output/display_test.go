package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/escriba/internal/speech"
	"github.com/stretchr/testify/require"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "olá do escriba")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "olá do escriba", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestDisplayPrintsAndCopiesTranscript(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	var out bytes.Buffer
	display := NewDisplay(&out, []string{scriptPath, clipboardPath}, nil)
	require.NoError(t, display.Display(context.Background(), speech.Result{Text: "teste", Found: true}))

	require.Equal(t, "teste\n", out.String())
	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "teste", string(data))
}

func TestDisplayPrintsMarkerWithoutCopying(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	var out bytes.Buffer
	display := NewDisplay(&out, []string{scriptPath, clipboardPath}, nil)
	require.NoError(t, display.Display(context.Background(), speech.Result{Text: speech.DefaultEmptyMarker}))

	require.Equal(t, speech.DefaultEmptyMarker+"\n", out.String())
	_, statErr := os.Stat(clipboardPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestDisplayWithoutClipboardOnlyPrints(t *testing.T) {
	var out bytes.Buffer
	display := NewDisplay(&out, nil, nil)
	require.NoError(t, display.Display(context.Background(), speech.Result{Text: "teste", Found: true}))
	require.Equal(t, "teste\n", out.String())
}

func TestDisplayReturnsErrorWhenClipboardCommandFails(t *testing.T) {
	failScript := writeFailScript(t, "clipboard failed")

	var out bytes.Buffer
	display := NewDisplay(&out, []string{failScript}, nil)
	err := display.Display(context.Background(), speech.Result{Text: "teste", Found: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
	require.Equal(t, "teste\n", out.String())
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho \"" + message + "\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
