// Package encoding turns recorded audio into the base64 payload the speech API expects.
package encoding

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rbright/escriba/internal/audio"
)

// ErrEmptyAudio means there were no bytes to encode.
var ErrEmptyAudio = errors.New("audio is empty")

// Audio is a base64-encoded recording plus its source format.
type Audio struct {
	Content string
	Format  audio.Format
	// Size is the decoded byte length.
	Size int
}

// EncodingError reports unreadable or unusable audio.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsEncodingError reports whether err carries an EncodingError.
func IsEncodingError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr)
}

// Encode base64-encodes blob using the standard padded alphabet.
func Encode(ctx context.Context, blob audio.Blob) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, &EncodingError{Op: "encode", Err: err}
	}
	if blob.Len() == 0 {
		return Audio{}, &EncodingError{Op: "encode", Err: ErrEmptyAudio}
	}
	return Audio{
		Content: base64.StdEncoding.EncodeToString(blob.Data),
		Format:  blob.Format,
		Size:    blob.Len(),
	}, nil
}

// EncodeReader streams r through a base64 encoder.
func EncodeReader(ctx context.Context, r io.Reader, format audio.Format) (Audio, error) {
	var out bytes.Buffer
	encoder := base64.NewEncoder(base64.StdEncoding, &out)

	n, err := io.Copy(encoder, contextReader{ctx: ctx, r: r})
	if err != nil {
		return Audio{}, &EncodingError{Op: "read", Err: err}
	}
	if err := encoder.Close(); err != nil {
		return Audio{}, &EncodingError{Op: "flush", Err: err}
	}
	if n == 0 {
		return Audio{}, &EncodingError{Op: "read", Err: ErrEmptyAudio}
	}
	return Audio{Content: out.String(), Format: format, Size: int(n)}, nil
}

// Decode recovers the raw bytes of encoded audio.
func Decode(a Audio) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return nil, &EncodingError{Op: "decode", Err: err}
	}
	return data, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
