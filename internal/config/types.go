// Package config resolves, parses, validates, and defaults escriba configuration.
package config

// Config is the fully materialized runtime configuration used by escriba.
type Config struct {
	Speech      SpeechConfig
	Recognition RecognitionConfig
	Audio       AudioConfig
	Transcript  TranscriptConfig
	Indicator   IndicatorConfig
	Clipboard   CommandConfig
	EnvFile     string
	Metrics     MetricsConfig
	Debug       DebugConfig
}

// SpeechConfig selects the transcription transport and its endpoints.
type SpeechConfig struct {
	Transport    string
	Endpoint     string
	GRPCEndpoint string
	GRPCInsecure bool
	APIKeyEnv    string
	TimeoutMS    int
}

// RecognitionConfig is the fixed encoding block sent with every request.
type RecognitionConfig struct {
	Encoding        string
	SampleRateHertz int
	LanguageCode    string
}

// AudioConfig controls the capture backend and input-source selection.
type AudioConfig struct {
	Backend     string
	Command     CommandConfig
	Input       string
	Fallback    string
	StopGraceMS int
}

// TranscriptConfig controls how transcription results are displayed.
type TranscriptConfig struct {
	EmptyMarker string
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump    bool
	EnableResponseDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
