// Package audio acquires the microphone and records one blob per session.
package audio

import (
	"context"
	"errors"
	"fmt"
)

// Format describes how the bytes of a Blob are encoded.
type Format struct {
	Encoding        string
	SampleRateHertz int
	Channels        int
}

// Blob is the immutable output of one recording session.
type Blob struct {
	Data   []byte
	Format Format
}

// Len reports the number of recorded bytes.
func (b Blob) Len() int {
	return len(b.Data)
}

// Completion is delivered once per Handle after recording ends.
type Completion struct {
	Blob Blob
	Err  error
}

// Handle is one live recording.
//
// Stop finalizes the recording and releases the device. It is idempotent and
// safe to call on every exit path. Done delivers exactly one Completion and is
// then closed.
type Handle interface {
	Stop()
	Done() <-chan Completion
	Device() string
	BytesCaptured() int64
}

// Recorder acquires the microphone and begins recording.
type Recorder interface {
	Start(ctx context.Context) (Handle, error)
}

// MediaAccessError reports that the microphone could not be opened or used.
type MediaAccessError struct {
	Device string
	Err    error
}

func (e *MediaAccessError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("media access error: %v", e.Err)
	}
	return fmt.Sprintf("media access error (%s): %v", e.Device, e.Err)
}

func (e *MediaAccessError) Unwrap() error {
	return e.Err
}

// IsMediaAccessError reports whether err carries a MediaAccessError.
func IsMediaAccessError(err error) bool {
	var mediaErr *MediaAccessError
	return errors.As(err, &mediaErr)
}

// finish delivers c on done exactly once and closes it.
func finish(done chan Completion, c Completion) {
	done <- c
	close(done)
}
