package session

import (
	"time"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/encoding"
	"github.com/rbright/escriba/internal/fsm"
	"github.com/rbright/escriba/internal/speech"
)

// Outcome is the terminal report for one recording session.
type Outcome struct {
	SessionID string
	Seq       uint64
	Result    speech.Result
	Err       error
	Cancelled bool
	// Applied is true when Result became the controller's latest result.
	Applied bool
	// Superseded is true when a newer session had already applied its result.
	Superseded bool

	Device        string
	BytesCaptured int64
	EncodedBytes  int

	StartedAt  time.Time
	StoppedAt  time.Time
	FinishedAt time.Time
}

// Status classifies the outcome into a short label for logs and metrics.
func (o Outcome) Status() string {
	switch {
	case o.Cancelled:
		return "cancelled"
	case o.Err == nil && !o.Result.Found:
		return "empty"
	case o.Err == nil:
		return "transcribed"
	case audio.IsMediaAccessError(o.Err):
		return "media_error"
	case encoding.IsEncodingError(o.Err):
		return "encoding_error"
	case speech.IsAPIError(o.Err):
		return "api_error"
	default:
		return "error"
	}
}

// Snapshot is the controller state read by displays and IPC status.
type Snapshot struct {
	State     fsm.State
	SessionID string

	Result          speech.Result
	HasResult       bool
	ResultSessionID string

	LastErr error
	Pending int
}
