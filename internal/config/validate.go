package config

import (
	"fmt"
	"strings"
)

// supportedEncodings lists the Speech v1 RecognitionConfig.AudioEncoding names.
var supportedEncodings = map[string]struct{}{
	"LINEAR16":               {},
	"FLAC":                   {},
	"MULAW":                  {},
	"AMR":                    {},
	"AMR_WB":                 {},
	"OGG_OPUS":               {},
	"SPEEX_WITH_HEADER_BYTE": {},
	"MP3":                    {},
	"WEBM_OPUS":              {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Speech.Transport {
	case TransportREST:
		endpoint := strings.TrimSpace(cfg.Speech.Endpoint)
		if endpoint == "" {
			return nil, fmt.Errorf("speech.endpoint must not be empty")
		}
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			return nil, fmt.Errorf("speech.endpoint must be an http(s) URL")
		}
		if strings.HasPrefix(endpoint, "http://") {
			warnings = append(warnings, Warning{Message: "speech.endpoint uses plain http; the API key is sent in the query string"})
		}
	case TransportGRPC:
		if strings.TrimSpace(cfg.Speech.GRPCEndpoint) == "" {
			return nil, fmt.Errorf("speech.grpc_endpoint must not be empty when speech.transport=grpc")
		}
	default:
		return nil, fmt.Errorf("speech.transport must be one of: rest, grpc")
	}
	if strings.TrimSpace(cfg.Speech.APIKeyEnv) == "" {
		return nil, fmt.Errorf("speech.api_key_env must not be empty")
	}
	if cfg.Speech.TimeoutMS < 0 {
		return nil, fmt.Errorf("speech.timeout_ms must be >= 0")
	}

	if _, ok := supportedEncodings[cfg.Recognition.Encoding]; !ok {
		return nil, fmt.Errorf("recognition.encoding %q is not a supported audio encoding", cfg.Recognition.Encoding)
	}
	if cfg.Recognition.SampleRateHertz < 8000 || cfg.Recognition.SampleRateHertz > 48000 {
		return nil, fmt.Errorf("recognition.sample_rate_hertz must be between 8000 and 48000")
	}
	if strings.TrimSpace(cfg.Recognition.LanguageCode) == "" {
		return nil, fmt.Errorf("recognition.language_code must not be empty")
	}

	switch cfg.Audio.Backend {
	case BackendCommand:
		if len(cfg.Audio.Command.Argv) == 0 {
			return nil, fmt.Errorf("audio.command must not be empty when audio.backend=command")
		}
		if cfg.Audio.Command.Raw == DefaultRecorderCommand && cfg.Recognition.Encoding != "WEBM_OPUS" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf(
				"default audio.command records WEBM_OPUS but recognition.encoding is %s", cfg.Recognition.Encoding,
			)})
		}
	case BackendPulse:
		if cfg.Recognition.Encoding != "LINEAR16" {
			return nil, fmt.Errorf("audio.backend=pulse records raw PCM and requires recognition.encoding=LINEAR16")
		}
	default:
		return nil, fmt.Errorf("audio.backend must be one of: command, pulse")
	}
	if cfg.Audio.StopGraceMS < 0 {
		return nil, fmt.Errorf("audio.stop_grace_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Transcript.EmptyMarker) == "" {
		return nil, fmt.Errorf("transcript.empty_marker must not be empty")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Clipboard.Raw) != "" && !strings.HasPrefix(strings.TrimSpace(cfg.Clipboard.Raw), "#") && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}

	return warnings, nil
}
