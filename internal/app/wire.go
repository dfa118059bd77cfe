package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/config"
	"github.com/rbright/escriba/internal/pipeline"
	"github.com/rbright/escriba/internal/speech"
	"github.com/rbright/escriba/internal/version"
)

// stack is the transcription stack shared by the owner and transcribe paths.
type stack struct {
	processor *pipeline.Processor
	closers   []io.Closer
}

func (rt *stack) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newStack resolves the API key and builds transport and pipeline.
// A missing key surfaces as a *config.ConfigurationError before any capture.
func newStack(cfg config.Config, logger *slog.Logger) (*stack, error) {
	apiKey, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	rt := &stack{}
	var dump io.Writer
	if cfg.Debug.EnableResponseDump {
		file, err := pipeline.OpenResponseDump()
		if err != nil {
			logger.Warn("response dump disabled", "error", err.Error())
		} else {
			dump = file
			rt.closers = append(rt.closers, file)
		}
	}

	transcriber, err := newTranscriber(cfg.Speech, cfg.Transcript, apiKey, dump)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if closer, ok := transcriber.(io.Closer); ok {
		rt.closers = append(rt.closers, closer)
	}

	rt.processor = pipeline.NewProcessor(pipeline.Options{
		Transcriber: transcriber,
		Recognition: speech.RecognitionConfig{
			Encoding:        cfg.Recognition.Encoding,
			SampleRateHertz: cfg.Recognition.SampleRateHertz,
			LanguageCode:    cfg.Recognition.LanguageCode,
		},
		AudioDump: cfg.Debug.EnableAudioDump,
		Logger:    logger,
	})
	return rt, nil
}

func newTranscriber(cfg config.SpeechConfig, transcript config.TranscriptConfig, apiKey string, dump io.Writer) (speech.Transcriber, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond

	switch cfg.Transport {
	case config.TransportGRPC:
		client, err := speech.NewGRPCClient(speech.GRPCOptions{
			Endpoint:    cfg.GRPCEndpoint,
			APIKey:      apiKey,
			Insecure:    cfg.GRPCInsecure,
			Timeout:     timeout,
			EmptyMarker: transcript.EmptyMarker,
			UserAgent:   version.UserAgent(),
			DebugSink:   dump,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.TransportREST, "":
		client, err := speech.NewRESTClient(speech.RESTOptions{
			Endpoint:    cfg.Endpoint,
			APIKey:      apiKey,
			Timeout:     timeout,
			EmptyMarker: transcript.EmptyMarker,
			UserAgent:   version.UserAgent(),
			DebugSink:   dump,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported speech transport %q", cfg.Transport)
	}
}

func newRecorder(cfg config.Config, logger *slog.Logger) audio.Recorder {
	if cfg.Audio.Backend == config.BackendPulse {
		return audio.PulseRecorder{
			Input:           cfg.Audio.Input,
			Fallback:        cfg.Audio.Fallback,
			SampleRateHertz: cfg.Recognition.SampleRateHertz,
			Warn: func(message string) {
				logger.Warn("audio device fallback", "message", message)
			},
		}
	}
	return audio.CommandRecorder{
		Argv: cfg.Audio.Command.Argv,
		Format: audio.Format{
			Encoding:        cfg.Recognition.Encoding,
			SampleRateHertz: cfg.Recognition.SampleRateHertz,
			Channels:        1,
		},
		StopGrace: time.Duration(cfg.Audio.StopGraceMS) * time.Millisecond,
	}
}

// openRecording opens FILE for transcribe, taking the format from the file
// where it can and from recognition settings otherwise.
func openRecording(path string, cfg config.Config) (*os.File, audio.Format, error) {
	return audio.OpenFile(path, audio.Format{
		Encoding:        cfg.Recognition.Encoding,
		SampleRateHertz: cfg.Recognition.SampleRateHertz,
		Channels:        1,
	})
}
