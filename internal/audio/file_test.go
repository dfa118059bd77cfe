package audio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func TestOpenFileReadsWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	writeTestWAV(t, path, 16000, 1, []int{0, 100, -100, 32767})

	file, format, err := OpenFile(path, Format{SampleRateHertz: 48000})
	require.NoError(t, err)
	defer file.Close()

	require.Equal(t, Format{Encoding: "LINEAR16", SampleRateHertz: 16000, Channels: 1}, format)

	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(head), "file must be rewound after header parsing")
}

func TestOpenFileUsesExtensionAndFallbackRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.WEBM")
	require.NoError(t, os.WriteFile(path, []byte{0x1a, 0x45, 0xdf, 0xa3}, 0o600))

	file, format, err := OpenFile(path, Format{SampleRateHertz: 48000})
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, Format{Encoding: "WEBM_OPUS", SampleRateHertz: 48000, Channels: 1}, format)
}

func TestOpenFileRejectsInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file at all"), 0o600))

	_, _, err := OpenFile(path, Format{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "valid WAV")
}

func TestOpenFileRejectsUnknownExtension(t *testing.T) {
	_, _, err := OpenFile("notes.txt", Format{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported audio file extension")
}

func TestOpenFileMissing(t *testing.T) {
	_, _, err := OpenFile(filepath.Join(t.TempDir(), "missing.flac"), Format{})
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func writeTestWAV(t *testing.T, path string, sampleRate int, channels int, samples []int) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   samples,
	}))
	require.NoError(t, encoder.Close())
}
