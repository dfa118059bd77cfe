package session

import (
	"context"
	"fmt"

	"github.com/rbright/escriba/internal/fsm"
	"github.com/rbright/escriba/internal/ipc"
)

// Handle serves IPC commands for the owner process.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.statusResponse("status")
	case "toggle":
		if c.State() == fsm.StateRecording {
			return c.requestStop(ctx, req.Wait)
		}
		return c.requestStart(ctx)
	case "start":
		return c.requestStart(ctx)
	case "stop":
		return c.requestStop(ctx, req.Wait)
	case "cancel":
		return c.requestCancel(ctx)
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) requestStart(ctx context.Context) ipc.Response {
	id, err := c.Start(ctx)
	if err != nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
	}
	return ipc.Response{OK: true, State: string(fsm.StateRecording), SessionID: id, Message: "recording started"}
}

func (c *Controller) requestStop(ctx context.Context, wait bool) ipc.Response {
	done, err := c.Stop(ctx)
	if err != nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
	}
	if done == nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: "cannot stop from state idle"}
	}
	if !wait {
		return ipc.Response{OK: true, State: string(fsm.StateIdle), Message: "stop requested"}
	}

	select {
	case outcome := <-done:
		resp := ipc.Response{
			OK:        outcome.Err == nil,
			State:     string(c.State()),
			SessionID: outcome.SessionID,
			Message:   outcome.Status(),
		}
		if outcome.Err != nil {
			resp.Error = outcome.Err.Error()
			return resp
		}
		resp.Transcript = outcome.Result.Text
		resp.Found = outcome.Result.Found
		return resp
	case <-ctx.Done():
		return ipc.Response{OK: false, State: string(c.State()), Error: ctx.Err().Error()}
	}
}

func (c *Controller) requestCancel(ctx context.Context) ipc.Response {
	if err := c.Cancel(ctx); err != nil {
		if err == ErrNotRecording {
			return ipc.Response{OK: false, State: string(c.State()), Error: "cannot cancel from state idle"}
		}
		return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
	}
	return ipc.Response{OK: true, State: string(fsm.StateIdle), Message: "cancelled"}
}

func (c *Controller) statusResponse(message string) ipc.Response {
	snap := c.Snapshot()
	resp := ipc.Response{
		OK:        true,
		State:     string(snap.State),
		SessionID: snap.SessionID,
		Message:   message,
	}
	if snap.HasResult {
		resp.Transcript = snap.Result.Text
		resp.Found = snap.Result.Found
	}
	if snap.LastErr != nil {
		resp.LastError = snap.LastErr.Error()
	}
	return resp
}
