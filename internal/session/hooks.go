package session

import (
	"context"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/pipeline"
	"github.com/rbright/escriba/internal/speech"
)

// Processor runs the encode -> transcribe stage for one finished recording.
type Processor interface {
	Process(context.Context, audio.Blob) (pipeline.Report, error)
}

// Sink receives every result the controller applies.
type Sink interface {
	Display(context.Context, speech.Result) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(context.Context, speech.Result) error

// Display calls f.
func (f SinkFunc) Display(ctx context.Context, result speech.Result) error {
	return f(ctx, result)
}

// Observer sees every finished session, applied or not.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(Outcome)

// Observe calls f.
func (f ObserverFunc) Observe(o Outcome) {
	f(o)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowTranscribing(context.Context)  {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}

func discardSink(context.Context, speech.Result) error { return nil }

func discardObserver(Outcome) {}
