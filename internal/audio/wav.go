// Package audio provides validation and inspection of the WAV containers the
// model produces. The service performs no signal processing of its own; this
// exists so that malformed engine output is rejected before it is served.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// WAV container layout constants.
const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16

	riffMagic = "RIFF"
	waveMagic = "WAVE"
	fmtChunk  = "fmt "
	dataChunk = "data"
)

// Validation limits, matching what the vocoder can emit.
const (
	maxSampleRate = 192000
	maxChannels   = 8
)

// Static errors.
var (
	// ErrNotWAV indicates that the data does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("data is not a RIFF/WAVE stream")
	// ErrTruncated indicates that the data ends before a declared chunk does.
	ErrTruncated = errors.New("wav data is truncated")
	// ErrNoFormatChunk indicates that no fmt chunk was found.
	ErrNoFormatChunk = errors.New("wav data has no format chunk")
	// ErrNoDataChunk indicates that no data chunk was found.
	ErrNoDataChunk = errors.New("wav data has no data chunk")
	// ErrInvalidFormat indicates that the format chunk holds out-of-range values.
	ErrInvalidFormat = errors.New("wav format chunk is invalid")
)

// Info describes a probed WAV stream.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataBytes     int
}

// Duration returns the play time of the probed stream. It returns zero when
// the format fields would make the computation meaningless.
func (i Info) Duration() time.Duration {
	bytesPerSecond := i.SampleRate * i.Channels * (i.BitsPerSample / 8)
	if bytesPerSecond <= 0 {
		return 0
	}

	return time.Duration(float64(i.DataBytes) / float64(bytesPerSecond) * float64(time.Second))
}

// Probe parses the RIFF container and returns the stream parameters.
func Probe(data []byte) (Info, error) {
	if len(data) < riffHeaderSize {
		return Info{}, ErrNotWAV
	}

	if string(data[0:4]) != riffMagic || string(data[8:12]) != waveMagic {
		return Info{}, ErrNotWAV
	}

	var (
		info      Info
		haveFmt   bool
		haveData  bool
		offset    = riffHeaderSize
		remaining = data
	)

	for offset+chunkHeaderSize <= len(remaining) {
		chunkID := string(remaining[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(remaining[offset+4 : offset+8]))
		body := offset + chunkHeaderSize

		if body+chunkSize > len(remaining) {
			return Info{}, fmt.Errorf("%w: chunk %q wants %d bytes", ErrTruncated, chunkID, chunkSize)
		}

		switch chunkID {
		case fmtChunk:
			fmtErr := parseFormatChunk(remaining[body:body+chunkSize], &info)
			if fmtErr != nil {
				return Info{}, fmtErr
			}

			haveFmt = true
		case dataChunk:
			info.DataBytes = chunkSize
			haveData = true
		}

		// Chunks are word aligned; odd sizes carry a pad byte.
		offset = body + chunkSize + chunkSize%2
	}

	if !haveFmt {
		return Info{}, ErrNoFormatChunk
	}

	if !haveData {
		return Info{}, ErrNoDataChunk
	}

	return info, nil
}

// Validate reports whether the data is a structurally sound WAV stream with
// plausible format parameters and a non-empty payload.
func Validate(data []byte) error {
	info, err := Probe(data)
	if err != nil {
		return err
	}

	if info.SampleRate <= 0 || info.SampleRate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, info.SampleRate)
	}

	if info.Channels <= 0 || info.Channels > maxChannels {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, info.Channels)
	}

	if info.DataBytes == 0 {
		return fmt.Errorf("%w: empty data chunk", ErrInvalidFormat)
	}

	return nil
}

func parseFormatChunk(body []byte, info *Info) error {
	if len(body) < fmtChunkMinSize {
		return fmt.Errorf("%w: format chunk is %d bytes", ErrInvalidFormat, len(body))
	}

	info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
	info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
	info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))

	return nil
}
