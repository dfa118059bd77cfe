package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var webmFormat = Format{Encoding: "WEBM_OPUS", SampleRateHertz: 48000, Channels: 1}

func TestCommandRecorderStopFinalizesAndCompletesOnce(t *testing.T) {
	script := writeRecorderScript(t, `
printf 'webm-head'
trap 'kill "$pid" 2>/dev/null || true; printf -- "-tail"; exit 0' INT
sleep 30 >/dev/null 2>&1 &
pid=$!
wait "$pid"
`)

	handle, err := CommandRecorder{Argv: []string{script}, Format: webmFormat, StartupGrace: 300 * time.Millisecond}.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, script, handle.Device())

	handle.Stop()
	handle.Stop()

	completion := waitCompletion(t, handle)
	require.NoError(t, completion.Err)
	require.Equal(t, "webm-head-tail", string(completion.Blob.Data))
	require.Equal(t, webmFormat, completion.Blob.Format)
	require.Equal(t, int64(len("webm-head-tail")), handle.BytesCaptured())

	_, ok := <-handle.Done()
	require.False(t, ok, "completion must be delivered exactly once")
}

func TestCommandRecorderKillsAfterGrace(t *testing.T) {
	script := writeRecorderScript(t, `
trap '' INT
printf 'partial'
sleep 2 >/dev/null 2>&1 &
wait $!
`)

	handle, err := CommandRecorder{
		Argv:         []string{script},
		Format:       webmFormat,
		StopGrace:    100 * time.Millisecond,
		StartupGrace: 300 * time.Millisecond,
	}.Start(context.Background())
	require.NoError(t, err)

	handle.Stop()
	completion := waitCompletion(t, handle)
	require.NoError(t, completion.Err)
	require.Equal(t, "partial", string(completion.Blob.Data))
}

func TestCommandRecorderEarlyExitIsMediaAccessError(t *testing.T) {
	script := writeRecorderScript(t, `
echo "pulse: Connection refused" >&2
exit 1
`)

	handle, err := CommandRecorder{Argv: []string{script}, Format: webmFormat, StartupGrace: 2 * time.Second}.Start(context.Background())
	require.Nil(t, handle)
	require.Error(t, err)
	require.True(t, IsMediaAccessError(err))
	require.Contains(t, err.Error(), "Connection refused")
}

func TestCommandRecorderMissingBinaryIsMediaAccessError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-recorder")

	_, err := CommandRecorder{Argv: []string{missing}}.Start(context.Background())
	require.Error(t, err)
	require.True(t, IsMediaAccessError(err))

	_, err = CommandRecorder{}.Start(context.Background())
	require.Error(t, err)
	require.True(t, IsMediaAccessError(err))
}

func TestCommandRecorderUnexpectedExitReportsError(t *testing.T) {
	script := writeRecorderScript(t, `
printf 'abc'
sleep 0.3
echo "device unplugged" >&2
exit 3
`)

	handle, err := CommandRecorder{Argv: []string{script}, Format: webmFormat, StartupGrace: 50 * time.Millisecond}.Start(context.Background())
	require.NoError(t, err)

	completion := waitCompletion(t, handle)
	require.Error(t, completion.Err)
	require.True(t, IsMediaAccessError(completion.Err))
	require.Contains(t, completion.Err.Error(), "device unplugged")
	require.Equal(t, "abc", string(completion.Blob.Data))
}

func TestCommandRecorderContextCancelStops(t *testing.T) {
	script := writeRecorderScript(t, `
printf 'ctx'
trap 'kill "$pid" 2>/dev/null || true; exit 0' INT
sleep 30 >/dev/null 2>&1 &
pid=$!
wait "$pid"
`)

	ctx, cancel := context.WithCancel(context.Background())
	handle, err := CommandRecorder{Argv: []string{script}, Format: webmFormat, StartupGrace: 300 * time.Millisecond}.Start(ctx)
	require.NoError(t, err)

	cancel()
	completion := waitCompletion(t, handle)
	require.NoError(t, completion.Err)
	require.Equal(t, "ctx", string(completion.Blob.Data))
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	var tail tailBuffer
	big := make([]byte, stderrTailBytes+10)
	for i := range big {
		big[i] = 'a'
	}
	big[len(big)-1] = 'z'

	n, err := tail.Write(big)
	require.NoError(t, err)
	require.Equal(t, len(big), n)
	require.Len(t, tail.String(), stderrTailBytes)
	require.Equal(t, byte('z'), tail.String()[stderrTailBytes-1])
}

func TestMediaAccessErrorFormatting(t *testing.T) {
	err := &MediaAccessError{Device: "mic", Err: context.Canceled}
	require.Equal(t, "media access error (mic): context canceled", err.Error())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "media access error: context canceled", (&MediaAccessError{Err: context.Canceled}).Error())
}

func writeRecorderScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "recorder.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func waitCompletion(t *testing.T, handle Handle) Completion {
	t.Helper()

	select {
	case completion, ok := <-handle.Done():
		require.True(t, ok)
		return completion
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for recording completion")
		return Completion{}
	}
}
