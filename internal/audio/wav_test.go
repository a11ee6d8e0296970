// Package audio_test tests WAV container probing.
package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-clone-service/internal/audio"
)

// buildWAV assembles a minimal RIFF/WAVE stream with a PCM format chunk and a
// zero-filled data chunk.
func buildWAV(t *testing.T, sampleRate, channels, bitsPerSample, dataBytes int) []byte {
	t.Helper()

	var buf bytes.Buffer

	writeU32 := func(v uint32) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	writeU16 := func(v uint16) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString("RIFF")
	writeU32(uint32(4 + 8 + 16 + 8 + dataBytes))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeU32(16)
	writeU16(1) // PCM
	writeU16(uint16(channels))
	writeU32(uint32(sampleRate))
	writeU32(uint32(sampleRate * channels * bitsPerSample / 8))
	writeU16(uint16(channels * bitsPerSample / 8))
	writeU16(uint16(bitsPerSample))

	buf.WriteString("data")
	writeU32(uint32(dataBytes))
	buf.Write(make([]byte, dataBytes))

	return buf.Bytes()
}

func TestProbe_ValidStream(t *testing.T) {
	t.Parallel()

	data := buildWAV(t, 24000, 1, 16, 48000)

	info, err := audio.Probe(data)
	require.NoError(t, err)

	assert.Equal(t, 24000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16, info.BitsPerSample)
	assert.Equal(t, 48000, info.DataBytes)

	// 48000 bytes of 16-bit mono at 24 kHz is exactly one second.
	assert.Equal(t, time.Second, info.Duration())
}

func TestProbe_RejectsNonWAV(t *testing.T) {
	t.Parallel()

	_, err := audio.Probe([]byte("this is not audio at all"))
	require.ErrorIs(t, err, audio.ErrNotWAV)

	_, err = audio.Probe([]byte("RI"))
	require.ErrorIs(t, err, audio.ErrNotWAV)
}

func TestProbe_RejectsTruncatedChunk(t *testing.T) {
	t.Parallel()

	data := buildWAV(t, 24000, 1, 16, 48000)

	// Cut the stream inside the data chunk payload.
	_, err := audio.Probe(data[:len(data)-100])
	require.ErrorIs(t, err, audio.ErrTruncated)
}

func TestProbe_RejectsMissingChunks(t *testing.T) {
	t.Parallel()

	// A RIFF/WAVE header with no chunks at all.
	header := []byte("RIFF\x04\x00\x00\x00WAVE")

	_, err := audio.Probe(header)
	require.ErrorIs(t, err, audio.ErrNoFormatChunk)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.Validate(buildWAV(t, 24000, 1, 16, 1024)))

	// Zero sample rate.
	bad := buildWAV(t, 0, 1, 16, 1024)
	require.ErrorIs(t, audio.Validate(bad), audio.ErrInvalidFormat)

	// Absurd channel count.
	bad = buildWAV(t, 24000, 64, 16, 1024)
	require.ErrorIs(t, audio.Validate(bad), audio.ErrInvalidFormat)

	// Empty payload.
	bad = buildWAV(t, 24000, 1, 16, 0)
	require.ErrorIs(t, audio.Validate(bad), audio.ErrInvalidFormat)
}
