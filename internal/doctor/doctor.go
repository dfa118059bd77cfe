// Package doctor runs readiness diagnostics for config, credentials, audio, and the speech endpoint.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/config"
	"github.com/rbright/escriba/internal/speech"
)

const checkTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	return lo.EveryBy(r.Checks, func(check Check) bool { return check.Pass })
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, config, and connectivity checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	apiKey, err := config.ResolveAPIKey(cfg.Config)
	if err != nil {
		checks = append(checks, Check{Name: "api_key", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, Check{Name: "api_key", Pass: true, Message: fmt.Sprintf("set (%d chars)", len(apiKey))})
	}

	switch cfg.Config.Audio.Backend {
	case config.BackendPulse:
		checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	default:
		checks = append(checks, checkCommand(cfg.Config.Audio.Command.Argv, "audio.command"))
	}

	if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
	}

	switch cfg.Config.Speech.Transport {
	case config.TransportGRPC:
		checks = append(checks, checkGRPCEndpoint(ctx, cfg.Config.Speech, apiKey))
	default:
		checks = append(checks, checkRESTEndpoint(ctx, cfg.Config.Speech.Endpoint, http.DefaultClient))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	if n := len(cfg.Warnings); n > 0 && cfg.Exists {
		message = fmt.Sprintf("%s (%d warnings)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRESTEndpoint reports whether the endpoint answers HTTP at all.
// Any status counts since recognize only accepts POST.
func checkRESTEndpoint(ctx context.Context, endpoint string, client *http.Client) Check {
	const name = "speech.endpoint"

	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid endpoint %q", endpoint)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	return Check{Name: name, Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, u.Host)}
}

// checkGRPCEndpoint waits for the gRPC channel to become ready.
func checkGRPCEndpoint(ctx context.Context, cfg config.SpeechConfig, apiKey string) Check {
	const name = "speech.grpc_endpoint"

	client, err := speech.NewGRPCClient(speech.GRPCOptions{
		Endpoint: cfg.GRPCEndpoint,
		APIKey:   apiKey,
		Insecure: cfg.GRPCInsecure,
	})
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	defer client.Close()

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := client.Ping(checkCtx); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("not ready: %v", err)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("ready at %s", cfg.GRPCEndpoint)}
}
