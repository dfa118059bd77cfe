// Package pipeline runs the encode -> transcribe stage for one recording.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/encoding"
	"github.com/rbright/escriba/internal/speech"
)

// Options configures a Processor.
type Options struct {
	Transcriber speech.Transcriber
	// Recognition supplies the language and the defaults for any format field
	// a recording leaves unset.
	Recognition speech.RecognitionConfig
	AudioDump   bool
	Logger      *slog.Logger
}

// Processor encodes a recording and submits it for transcription.
type Processor struct {
	transcriber speech.Transcriber
	recognition speech.RecognitionConfig
	audioDump   bool
	logger      *slog.Logger
}

// Report is the outcome of one pipeline run.
type Report struct {
	Result       speech.Result
	EncodedBytes int
	AudioBytes   int
	Elapsed      time.Duration
}

// NewProcessor constructs a processor; a nil Transcriber is a programming error.
func NewProcessor(opts Options) *Processor {
	if opts.Transcriber == nil {
		panic("pipeline: nil transcriber")
	}
	return &Processor{
		transcriber: opts.Transcriber,
		recognition: opts.Recognition,
		audioDump:   opts.AudioDump,
		logger:      opts.Logger,
	}
}

// Process encodes blob and transcribes it in one attempt.
func (p *Processor) Process(ctx context.Context, blob audio.Blob) (Report, error) {
	started := time.Now()

	encoded, err := encoding.Encode(ctx, blob)
	if err != nil {
		return Report{AudioBytes: blob.Len(), Elapsed: time.Since(started)}, err
	}
	if p.audioDump {
		p.writeDebugAudio(blob)
	}

	return p.transcribe(ctx, encoded, started)
}

// ProcessReader streams an existing recording through the encoder.
func (p *Processor) ProcessReader(ctx context.Context, r io.Reader, format audio.Format) (Report, error) {
	started := time.Now()

	encoded, err := encoding.EncodeReader(ctx, r, format)
	if err != nil {
		return Report{Elapsed: time.Since(started)}, err
	}
	return p.transcribe(ctx, encoded, started)
}

func (p *Processor) transcribe(ctx context.Context, encoded encoding.Audio, started time.Time) (Report, error) {
	report := Report{EncodedBytes: len(encoded.Content), AudioBytes: encoded.Size}

	cfg := p.recognitionFor(encoded.Format)
	result, err := p.transcriber.Transcribe(ctx, encoded, cfg)
	report.Elapsed = time.Since(started)
	if err != nil {
		return report, fmt.Errorf("transcribe: %w", err)
	}
	report.Result = result

	p.logInfo("transcription complete",
		"found", result.Found,
		"api_latency_ms", result.Latency.Milliseconds(),
		"elapsed_ms", report.Elapsed.Milliseconds(),
		"audio_bytes", report.AudioBytes,
		"encoding", cfg.Encoding,
		"sample_rate_hertz", cfg.SampleRateHertz,
	)
	return report, nil
}

// recognitionFor prefers the recording's own format over configured defaults.
func (p *Processor) recognitionFor(format audio.Format) speech.RecognitionConfig {
	cfg := p.recognition
	if enc := strings.TrimSpace(format.Encoding); enc != "" {
		cfg.Encoding = enc
	}
	if format.SampleRateHertz > 0 {
		cfg.SampleRateHertz = format.SampleRateHertz
	}
	return cfg
}

func (p *Processor) logInfo(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, args...)
}

func (p *Processor) logWarn(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, args...)
}
