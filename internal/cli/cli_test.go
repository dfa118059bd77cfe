package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWithoutArgsShowsHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Parsed{Command: CommandHelp, ShowHelp: true}, parsed)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Parsed
	}{
		{name: "short help", args: []string{"-h"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "long help", args: []string{"--help"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "help command", args: []string{"help"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "version flag", args: []string{"--version"}, want: Parsed{Command: CommandVersion}},
		{name: "toggle", args: []string{"toggle"}, want: Parsed{Command: CommandToggle}},
		{name: "cancel", args: []string{"cancel"}, want: Parsed{Command: CommandCancel}},
		{
			name: "config before stop",
			args: []string{"--config", "/tmp/cfg", "stop"},
			want: Parsed{Command: CommandStop, ConfigPath: "/tmp/cfg"},
		},
		{
			name: "config with equals",
			args: []string{"--config=/tmp/escriba.jsonc", "doctor"},
			want: Parsed{Command: CommandDoctor, ConfigPath: "/tmp/escriba.jsonc"},
		},
		{
			name: "transcribe file",
			args: []string{"--config", "/tmp/cfg", "transcribe", "/tmp/clip.webm"},
			want: Parsed{Command: CommandTranscribe, ConfigPath: "/tmp/cfg", File: "/tmp/clip.webm"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.want, parsed)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := map[string]struct {
		args    []string
		wantErr string
	}{
		"missing config path":   {args: []string{"--config"}, wantErr: "--config requires a path"},
		"empty config equals":   {args: []string{"--config=", "status"}, wantErr: "--config requires a path"},
		"unknown flag":          {args: []string{"--bogus"}, wantErr: "unknown flag: --bogus"},
		"unknown command":       {args: []string{"record"}, wantErr: "unknown command: record"},
		"flag after command":    {args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		"extra operand":         {args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		"transcribe no file":    {args: []string{"transcribe"}, wantErr: "transcribe requires a FILE"},
		"transcribe blank file": {args: []string{"transcribe", " "}, wantErr: "transcribe requires a FILE"},
		"transcribe two files":  {args: []string{"transcribe", "a.webm", "b.webm"}, wantErr: "b.webm"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.args)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	text := HelpText("escriba")
	require.True(t, strings.HasPrefix(text, "Usage:\n  escriba [--config PATH] <command>"))
	for _, spec := range commands {
		require.Contains(t, text, "  "+string(spec.name))
	}
	require.Contains(t, text, "transcribe FILE")
	require.Contains(t, text, "--config PATH")
}
