package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Speech      *jsoncSpeech      `json:"speech"`
	Recognition *jsoncRecognition `json:"recognition"`
	Audio       *jsoncAudio       `json:"audio"`
	Transcript  *jsoncTranscript  `json:"transcript"`
	Indicator   *jsoncIndicator   `json:"indicator"`
	Metrics     *jsoncMetrics     `json:"metrics"`
	Debug       *jsoncDebug       `json:"debug"`

	ClipboardCmd *string `json:"clipboard_cmd"`
	EnvFile      *string `json:"env_file"`
}

type jsoncSpeech struct {
	Transport    *string `json:"transport"`
	Endpoint     *string `json:"endpoint"`
	GRPCEndpoint *string `json:"grpc_endpoint"`
	GRPCInsecure *bool   `json:"grpc_insecure"`
	APIKeyEnv    *string `json:"api_key_env"`
	TimeoutMS    *int    `json:"timeout_ms"`
}

type jsoncRecognition struct {
	Encoding        *string `json:"encoding"`
	SampleRateHertz *int    `json:"sample_rate_hertz"`
	LanguageCode    *string `json:"language_code"`
}

type jsoncAudio struct {
	Backend     *string `json:"backend"`
	Command     *string `json:"command"`
	Input       *string `json:"input"`
	Fallback    *string `json:"fallback"`
	StopGraceMS *int    `json:"stop_grace_ms"`
}

type jsoncTranscript struct {
	EmptyMarker *string `json:"empty_marker"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Textfile *string `json:"textfile"`
}

type jsoncDebug struct {
	AudioDump    *bool `json:"audio_dump"`
	ResponseDump *bool `json:"response_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if s := payload.Speech; s != nil {
		setString(&cfg.Speech.Transport, s.Transport, true)
		setString(&cfg.Speech.Endpoint, s.Endpoint, true)
		setString(&cfg.Speech.GRPCEndpoint, s.GRPCEndpoint, true)
		setString(&cfg.Speech.APIKeyEnv, s.APIKeyEnv, true)
		if s.GRPCInsecure != nil {
			cfg.Speech.GRPCInsecure = *s.GRPCInsecure
		}
		if s.TimeoutMS != nil {
			cfg.Speech.TimeoutMS = *s.TimeoutMS
		}
	}

	if r := payload.Recognition; r != nil {
		if r.Encoding != nil {
			cfg.Recognition.Encoding = strings.ToUpper(strings.TrimSpace(*r.Encoding))
		}
		if r.SampleRateHertz != nil {
			cfg.Recognition.SampleRateHertz = *r.SampleRateHertz
		}
		setString(&cfg.Recognition.LanguageCode, r.LanguageCode, true)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Backend, a.Backend, true)
		setString(&cfg.Audio.Input, a.Input, false)
		setString(&cfg.Audio.Fallback, a.Fallback, false)
		if a.StopGraceMS != nil {
			cfg.Audio.StopGraceMS = *a.StopGraceMS
		}
		if a.Command != nil {
			command, err := parseCommand(*a.Command)
			if err != nil {
				return fmt.Errorf("invalid audio.command: %w", err)
			}
			cfg.Audio.Command = command
		}
	}

	if payload.Transcript != nil {
		setString(&cfg.Transcript.EmptyMarker, payload.Transcript.EmptyMarker, false)
	}

	if i := payload.Indicator; i != nil {
		if i.Enable != nil {
			cfg.Indicator.Enable = *i.Enable
		}
		if i.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *i.SoundEnable
		}
		if i.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *i.ErrorTimeoutMS
		}
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName, true)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile, true)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile, true)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile, true)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile, true)
	}

	if payload.ClipboardCmd != nil {
		command, err := parseCommand(*payload.ClipboardCmd)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = command
	}

	setString(&cfg.EnvFile, payload.EnvFile, true)

	if payload.Metrics != nil {
		setString(&cfg.Metrics.Textfile, payload.Metrics.Textfile, true)
	}

	if d := payload.Debug; d != nil {
		if d.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *d.AudioDump
		}
		if d.ResponseDump != nil {
			cfg.Debug.EnableResponseDump = *d.ResponseDump
		}
	}

	return nil
}

// setString copies an optional JSON value into dst, trimming when asked.
func setString(dst *string, value *string, trim bool) {
	if value == nil {
		return
	}
	if trim {
		*dst = strings.TrimSpace(*value)
		return
	}
	*dst = *value
}

func parseCommand(raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

// normalizeJSONC blanks out comments and trailing commas with spaces so that
// decoder offsets still map onto the original file's lines and columns.
func normalizeJSONC(content string) (string, error) {
	withoutComments, err := blankJSONCComments(content)
	if err != nil {
		return "", err
	}
	return blankTrailingCommas(withoutComments), nil
}

func blankJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		switch {
		case ch == '"':
			i = copyJSONString(content, i, &out)
		case ch == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				out.WriteByte(' ')
				i++
			}
		case ch == '/' && i+1 < len(content) && content[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				out.WriteByte(blankFor(content[i]))
			}
		default:
			out.WriteByte(ch)
			i++
		}
	}

	return out.String(), nil
}

func blankTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		if ch == '"' {
			i = copyJSONString(content, i, &out)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				out.WriteByte(' ')
				i++
				continue
			}
		}
		out.WriteByte(ch)
		i++
	}

	return out.String()
}

// copyJSONString writes the string literal starting at content[start] and
// returns the index just past its closing quote.
func copyJSONString(content string, start int, out *strings.Builder) int {
	out.WriteByte(content[start])
	escaped := false
	for i := start + 1; i < len(content); i++ {
		ch := content[i]
		out.WriteByte(ch)
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			return i + 1
		}
	}
	return len(content)
}

func blankFor(ch byte) byte {
	if ch == '\n' || ch == '\r' || ch == '\t' {
		return ch
	}
	return ' '
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))
	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
