package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/escriba/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNotifierReplacesAndDismissesNotification(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	t.Setenv("LC_MESSAGES", "pt_BR.UTF-8")
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	notify := NewNotifier(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowTranscribing(context.Background())
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i escriba 0 audio-input-microphone Gravando…  0 0 300000")
	require.Contains(t, lines[1], "Notify susssasa{sv}i escriba 42 audio-input-microphone Transcrevendo…  0 0 300000")
	require.Contains(t, lines[2], "CloseNotification u 42")
}

func TestNotifierShowErrorUsesDefaultsAndTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	t.Setenv("LC_MESSAGES", "en_US.UTF-8")
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 7'
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0

	notify := NewNotifier(cfg, nil)
	notify.ShowError(context.Background(), "")
	notify.ShowError(context.Background(), "Microphone unavailable")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasSuffix(lines[0], "dialog-error Speech recognition error  0 0 1200"))
	require.True(t, strings.HasSuffix(lines[1], "7 dialog-error Microphone unavailable  0 0 1200"))
}

func TestNotifierDisabledSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	notify := NewNotifier(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowTranscribing(context.Background())
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())
	notify.Flush()

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestDesktopNotifyRejectsMalformedReply(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	_, err := desktopNotify(context.Background(), notification{appName: "escriba", summary: "hello", timeoutMS: 1000})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

func TestDesktopNotifyIncludesCommandOutputOnFailure(t *testing.T) {
	installBusctlStub(t, `
echo 'no session bus' >&2
exit 1
`)

	_, err := desktopNotify(context.Background(), notification{appName: "escriba", summary: "hello", timeoutMS: 1000})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no session bus")

	err = desktopDismiss(context.Background(), 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "desktop dismiss failed")
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
