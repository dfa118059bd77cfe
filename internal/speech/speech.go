// Package speech submits encoded audio to the Google Cloud Speech-to-Text
// recognize API and reduces the response to a single transcript.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/escriba/internal/encoding"
	"github.com/samber/lo"
)

// DefaultEmptyMarker is displayed when the API recognized nothing.
const DefaultEmptyMarker = "no transcription available"

// RecognitionConfig is the fixed encoding block sent with every request.
type RecognitionConfig struct {
	Encoding        string
	SampleRateHertz int
	LanguageCode    string
}

// DefaultRecognitionConfig matches what the browser recorder produced.
func DefaultRecognitionConfig() RecognitionConfig {
	return RecognitionConfig{Encoding: "WEBM_OPUS", SampleRateHertz: 48000, LanguageCode: "pt-BR"}
}

// Result is one transcription outcome.
//
// Found is false when the response carried no results; Text then holds the
// empty marker instead of a transcript.
type Result struct {
	Text    string
	Found   bool
	Latency time.Duration
}

// Transcriber sends one recognize request per call. It never retries.
type Transcriber interface {
	Transcribe(ctx context.Context, audio encoding.Audio, cfg RecognitionConfig) (Result, error)
}

// APIError reports any transport, HTTP, or decoding failure from the endpoint.
type APIError struct {
	// StatusCode is the HTTP status, or zero when no response was received.
	StatusCode int
	// Status is the API status name, e.g. PERMISSION_DENIED.
	Status  string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	var head string
	if e.StatusCode != 0 {
		head = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	head = strings.Join(lo.Compact([]string{head, e.Status}), " ")

	detail := e.Message
	if e.Err != nil {
		detail = strings.Join(lo.Compact([]string{detail, e.Err.Error()}), ": ")
	}

	return strings.Join(lo.Compact([]string{"transcription api error", head, detail}), ": ")
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsAPIError reports whether err carries an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// resultFrom builds a Result, substituting the marker when nothing was found.
func resultFrom(transcript string, found bool, marker string) Result {
	if !found {
		if strings.TrimSpace(marker) == "" {
			marker = DefaultEmptyMarker
		}
		return Result{Text: marker}
	}
	return Result{Text: transcript, Found: true}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
