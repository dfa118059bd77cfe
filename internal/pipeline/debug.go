package pipeline

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rbright/escriba/internal/audio"
)

var dumpExtensions = map[string]string{
	"LINEAR16":  "wav",
	"WEBM_OPUS": "webm",
	"OGG_OPUS":  "ogg",
	"FLAC":      "flac",
	"MP3":       "mp3",
}

// OpenResponseDump creates a JSONL file for raw API responses.
func OpenResponseDump() (*os.File, error) {
	return createDebugFile("response", "jsonl")
}

// createDebugFile creates timestamped debug artifacts under state/escriba/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "escriba", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writeDebugAudio saves the recording; raw PCM is wrapped in a WAV container.
func (p *Processor) writeDebugAudio(blob audio.Blob) {
	ext, ok := dumpExtensions[blob.Format.Encoding]
	if !ok {
		ext = "bin"
	}

	file, err := createDebugFile("audio", ext)
	if err != nil {
		p.logWarn("unable to create debug audio dump", "error", err.Error())
		return
	}
	defer file.Close()

	if blob.Format.Encoding == "LINEAR16" {
		err = writePCMToWav(file, blob.Data, blob.Format.SampleRateHertz, blob.Format.Channels)
	} else {
		_, err = file.Write(blob.Data)
	}
	if err != nil {
		p.logWarn("unable to write debug audio dump", "error", err.Error(), "path", file.Name())
		return
	}
	p.logInfo("debug audio dump written", "path", file.Name())
}

// writePCMToWav encodes little-endian 16-bit PCM as a WAV file.
func writePCMToWav(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	if channels <= 0 {
		channels = 1
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   samples,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
