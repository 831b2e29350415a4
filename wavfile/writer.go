// Package wavfile implements the streaming WAV container collaborator
// described in spec §6: a writer that can emit a canonical PCM header
// before the total sample count is known, using the RIFF/data "unknown
// length" sentinel chunk sizes.
package wavfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meinders/helium/pcm"
)

// Sentinel chunk sizes used when the total stream length isn't known at
// header-write time. Spec §6 requires these reproduced bit-exactly.
const (
	riffUnknownSize = 0x80000024
	dataUnknownSize = 0x80000000
)

type riffChunk struct {
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte
}

type fmtChunk struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type dataChunkHeader struct {
	ChunkID   [4]byte
	ChunkSize uint32
}

const pcmFormatTag = 1

// Writer wraps an io.Writer with a streaming WAV header. It is the
// normalizer's "downstream may be a WAV-wrapping writer" collaborator
// from spec §6 — the core writes decoded PCM samples through it exactly
// as it would to a raw pipe, but the first byte written triggers a
// 44-byte header using the "unknown length" sentinel sizes, since
// streaming precludes knowing the final size in advance. Struct layout
// and the encoding/binary.Write-based header emission follow the
// sdrplay-go wav helper, trimmed to the PCM-only, no-fact-chunk 44-byte
// form spec §6's scenario S6 requires.
type Writer struct {
	w             io.Writer
	headerWritten bool
	sampleRate    uint32
	channels      uint16
	bitsPerSample uint16
}

// NewWriter constructs a Writer for the given format parameters. It does
// not write anything until the first Write call.
func NewWriter(w io.Writer, kind pcm.Kind, channels int, sampleRate int) (*Writer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("wavfile: channels must be positive, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wavfile: sample rate must be positive, got %d", sampleRate)
	}

	var bits uint16
	switch kind {
	case pcm.PCM8:
		bits = 8
	case pcm.PCM16LE, pcm.PCM16BE:
		bits = 16
	default:
		return nil, fmt.Errorf("wavfile: unsupported sample format %v", kind)
	}

	return &Writer{
		w:             w,
		sampleRate:    uint32(sampleRate),
		channels:      uint16(channels),
		bitsPerSample: bits,
	}, nil
}

func (wr *Writer) writeHeader() error {
	blockAlign := wr.channels * (wr.bitsPerSample / 8)
	byteRate := wr.sampleRate * uint32(blockAlign)

	riff := riffChunk{
		ChunkID:   [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize: riffUnknownSize,
		Format:    [4]byte{'W', 'A', 'V', 'E'},
	}
	format := fmtChunk{
		ChunkID:       [4]byte{'f', 'm', 't', ' '},
		ChunkSize:     16,
		AudioFormat:   pcmFormatTag,
		NumChannels:   wr.channels,
		SampleRate:    wr.sampleRate,
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: wr.bitsPerSample,
	}
	data := dataChunkHeader{
		ChunkID:   [4]byte{'d', 'a', 't', 'a'},
		ChunkSize: dataUnknownSize,
	}

	for _, v := range []any{riff, format, data} {
		if err := binary.Write(wr.w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	wr.headerWritten = true
	return nil
}

// Write emits the header on the first call (if not already written),
// then forwards p unchanged to the wrapped sink.
func (wr *Writer) Write(p []byte) (int, error) {
	if !wr.headerWritten {
		if err := wr.writeHeader(); err != nil {
			return 0, err
		}
	}
	return wr.w.Write(p)
}

// Flush guarantees the header has been emitted even for a stream that
// closes with zero sample bytes (spec §6 scenario S6), then propagates
// to the wrapped sink if it supports Flush.
func (wr *Writer) Flush() error {
	if !wr.headerWritten {
		if err := wr.writeHeader(); err != nil {
			return err
		}
	}
	if f, ok := wr.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and, if the wrapped sink is a Closer, closes it.
func (wr *Writer) Close() error {
	flushErr := wr.Flush()
	if c, ok := wr.w.(io.Closer); ok {
		if err := c.Close(); err != nil && flushErr == nil {
			return err
		}
	}
	return flushErr
}
