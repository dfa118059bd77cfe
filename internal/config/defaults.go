package config

const (
	TransportREST = "rest"
	TransportGRPC = "grpc"

	BackendCommand = "command"
	BackendPulse   = "pulse"

	DefaultEndpoint     = "https://speech.googleapis.com/v1/speech:recognize"
	DefaultGRPCEndpoint = "speech.googleapis.com:443"
	DefaultAPIKeyEnv    = "GOOGLE_API_KEY"

	// DefaultRecorderCommand writes a WEBM/Opus stream to stdout until interrupted.
	DefaultRecorderCommand = "ffmpeg -nostdin -hide_banner -loglevel error -f pulse -i default -ac 1 -ar 48000 -c:a libopus -f webm pipe:1"

	DefaultEmptyMarker = "no transcription available"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			Transport:    TransportREST,
			Endpoint:     DefaultEndpoint,
			GRPCEndpoint: DefaultGRPCEndpoint,
			APIKeyEnv:    DefaultAPIKeyEnv,
			TimeoutMS:    30000,
		},
		Recognition: RecognitionConfig{
			Encoding:        "WEBM_OPUS",
			SampleRateHertz: 48000,
			LanguageCode:    "pt-BR",
		},
		Audio: AudioConfig{
			Backend:     BackendCommand,
			Command:     CommandConfig{Raw: DefaultRecorderCommand, Argv: mustParseArgv(DefaultRecorderCommand)},
			Input:       "default",
			Fallback:    "default",
			StopGraceMS: 2000,
		},
		Transcript: TranscriptConfig{EmptyMarker: DefaultEmptyMarker},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "escriba",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{},
	}
}
