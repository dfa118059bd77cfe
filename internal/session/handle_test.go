package session

import (
	"context"
	"testing"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/fsm"
	"github.com/rbright/escriba/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	h := newHarness(t)

	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Empty(t, status.Transcript)

	unknown := h.ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStopAndCancelFromIdle(t *testing.T) {
	h := newHarness(t)

	stop := h.ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, stop.OK)
	require.Equal(t, "cannot stop from state idle", stop.Error)

	cancel := h.ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.False(t, cancel.OK)
	require.Equal(t, "cannot cancel from state idle", cancel.Error)
}

func TestHandleToggleStartsThenStopsWithWait(t *testing.T) {
	h := newHarness(t)

	started := h.ctrl.Handle(context.Background(), ipc.Request{Command: "toggle"})
	require.True(t, started.OK)
	require.Equal(t, string(fsm.StateRecording), started.State)
	require.Equal(t, "s-1", started.SessionID)

	again := h.ctrl.Handle(context.Background(), ipc.Request{Command: "start"})
	require.False(t, again.OK)
	require.Equal(t, ErrAlreadyRecording.Error(), again.Error)

	stopped := h.ctrl.Handle(context.Background(), ipc.Request{Command: "toggle", Wait: true})
	require.True(t, stopped.OK)
	require.Equal(t, "teste", stopped.Transcript)
	require.True(t, stopped.Found)
	require.Equal(t, "s-1", stopped.SessionID)
	require.Equal(t, "transcribed", stopped.Message)

	require.NoError(t, h.ctrl.Wait(context.Background()))
	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.Equal(t, "teste", status.Transcript)
	require.Empty(t, status.LastError)
}

func TestHandleStopWithoutWaitReturnsImmediately(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, processStep{gate: gate})

	_, err := h.ctrl.Start(context.Background())
	require.NoError(t, err)

	resp := h.ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, resp.OK)
	require.Equal(t, "stop requested", resp.Message)
	require.Equal(t, 1, h.ctrl.Snapshot().Pending)

	close(gate)
	require.NoError(t, h.ctrl.Wait(context.Background()))
}

func TestHandleCancelAndStartFailureReportLastError(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.Start(context.Background())
	require.NoError(t, err)
	resp := h.ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, resp.OK)
	require.Equal(t, "cancelled", resp.Message)

	h.recorder.startErr = &audio.MediaAccessError{Err: errDenied}
	start := h.ctrl.Handle(context.Background(), ipc.Request{Command: "start"})
	require.False(t, start.OK)
	require.Contains(t, start.Error, "media access error")

	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Contains(t, status.LastError, "permission denied")
}
