package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// extensionFormats maps recording file extensions to API encodings.
var extensionFormats = map[string]string{
	".webm": "WEBM_OPUS",
	".ogg":  "OGG_OPUS",
	".opus": "OGG_OPUS",
	".flac": "FLAC",
	".mp3":  "MP3",
	".amr":  "AMR",
	".raw":  "LINEAR16",
	".pcm":  "LINEAR16",
	".wav":  "LINEAR16",
}

// OpenFile opens an existing recording and infers its Format.
//
// WAV files must be 16-bit PCM; their header supplies the sample rate and
// channel count. Other formats take the sample rate from fallback. The
// returned file is positioned at its first byte.
func OpenFile(path string, fallback Format) (*os.File, Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	encoding, ok := extensionFormats[ext]
	if !ok {
		return nil, Format{}, fmt.Errorf("unsupported audio file extension %q", ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("open audio file: %w", err)
	}

	format := Format{Encoding: encoding, SampleRateHertz: fallback.SampleRateHertz, Channels: fallback.Channels}
	if format.Channels == 0 {
		format.Channels = 1
	}

	if ext == ".wav" {
		wavFormat, err := readWAVFormat(file)
		if err != nil {
			_ = file.Close()
			return nil, Format{}, fmt.Errorf("read %s: %w", path, err)
		}
		format = wavFormat
	}

	return file, format, nil
}

func readWAVFormat(file *os.File) (Format, error) {
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return Format{}, fmt.Errorf("not a valid WAV file")
	}
	if decoder.WavAudioFormat != 1 || decoder.BitDepth != 16 {
		return Format{}, fmt.Errorf("WAV must be 16-bit PCM (format %d, %d bits)", decoder.WavAudioFormat, decoder.BitDepth)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Format{}, fmt.Errorf("rewind: %w", err)
	}
	return Format{
		Encoding:        "LINEAR16",
		SampleRateHertz: int(decoder.SampleRate),
		Channels:        int(decoder.NumChans),
	}, nil
}
