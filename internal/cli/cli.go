// Package cli parses escriba command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandToggle     Command = "toggle"
	CommandStop       Command = "stop"
	CommandCancel     Command = "cancel"
	CommandStatus     Command = "status"
	CommandTranscribe Command = "transcribe"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

type commandSpec struct {
	name    Command
	operand string // required positional argument, if any
	summary string
}

// commands is ordered as printed in the help text.
var commands = []commandSpec{
	{name: CommandToggle, summary: "Start recording, or stop and transcribe when already recording"},
	{name: CommandStop, summary: "Stop the active recording and print its transcript"},
	{name: CommandCancel, summary: "Cancel the active recording and discard the audio"},
	{name: CommandStatus, summary: "Print current state and the latest transcript"},
	{name: CommandTranscribe, operand: "FILE", summary: "Transcribe an existing recording"},
	{name: CommandDevices, summary: "List available input devices"},
	{name: CommandDoctor, summary: "Run configuration and environment checks"},
	{name: CommandVersion, summary: "Print version information"},
	{name: CommandHelp, summary: "Show this help"},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	// File is the recording passed to transcribe.
	File     string
	ShowHelp bool
}

// Parse reads global flags followed by exactly one command.
// Flags are accepted only before the command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.Command, parsed.ShowHelp = CommandHelp, true
		case arg == "--version":
			parsed.Command, parsed.ShowHelp = CommandVersion, false
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			if parsed.ConfigPath == "" {
				return Parsed{}, errors.New("--config requires a path")
			}
		case strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			spec, ok := lookup(arg)
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			rest := args[i+1:]
			if spec.operand != "" {
				if len(rest) == 0 || strings.TrimSpace(rest[0]) == "" {
					return Parsed{}, fmt.Errorf("%s requires a %s", spec.name, spec.operand)
				}
				parsed.File, rest = rest[0], rest[1:]
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q: %s", arg, strings.Join(rest, " "))
			}
			parsed.Command = spec.name
			parsed.ShowHelp = spec.name == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func lookup(name string) (commandSpec, bool) {
	for _, spec := range commands {
		if string(spec.name) == name {
			return spec, true
		}
	}
	return commandSpec{}, false
}

func HelpText(binaryName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [--config PATH] <command>\n\nCommands:\n", binaryName)
	for _, spec := range commands {
		usage := string(spec.name)
		if spec.operand != "" {
			usage += " " + spec.operand
		}
		fmt.Fprintf(&b, "  %-16s %s\n", usage, spec.summary)
	}
	b.WriteString(`
Flags:
  --config PATH   Config file path (default: $ESCRIBA_CONFIG, then $XDG_CONFIG_HOME/escriba/config.jsonc)
  -h, --help      Show help
  --version       Show version
`)
	return b.String()
}
