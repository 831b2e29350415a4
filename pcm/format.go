package pcm

import "io"

// Kind identifies one of the sample formats this package understands.
type Kind int

const (
	PCM8 Kind = iota
	PCM16LE
	PCM16BE
)

func (k Kind) String() string {
	switch k {
	case PCM8:
		return "PCM8"
	case PCM16LE:
		return "PCM16LE"
	case PCM16BE:
		return "PCM16BE"
	default:
		return "unknown"
	}
}

// Codec decodes a byte stream into signed integer samples and encodes
// samples back to bytes for one of the supported PCM formats. It is a
// tagged variant rather than a type hierarchy: the three formats differ
// only in byte width and endianness, which a single switch handles more
// plainly than three near-identical structs would.
type Codec struct {
	kind Kind

	// pending holds the first byte of a two-byte sample still being
	// assembled. hasPending distinguishes "no byte seen yet" from a
	// legitimately zero first byte.
	pending    byte
	hasPending bool

	current int
}

// NewCodec constructs a Codec for kind. Unsupported kinds are rejected at
// construction per spec.
func NewCodec(kind Kind) (*Codec, error) {
	switch kind {
	case PCM8, PCM16LE, PCM16BE:
		return &Codec{kind: kind}, nil
	default:
		return nil, newConfigError("format", errUnsupportedFormat{kind})
	}
}

type errUnsupportedFormat struct{ kind Kind }

func (e errUnsupportedFormat) Error() string {
	return "unsupported sample format: " + e.kind.String()
}

// Kind reports the format this codec was constructed for.
func (c *Codec) Kind() Kind { return c.kind }

// ByteWidth returns the number of bytes one sample occupies on the wire.
func (c *Codec) ByteWidth() int {
	if c.kind == PCM8 {
		return 1
	}
	return 2
}

// MaxAmplitude returns M, the maximum positive amplitude representable in
// this format (127 for 8-bit, 32767 for 16-bit).
func (c *Codec) MaxAmplitude() int {
	if c.kind == PCM8 {
		return 127
	}
	return 32767
}

// Clamp saturates sample to [-(M+1), M].
func (c *Codec) Clamp(sample int) int {
	m := c.MaxAmplitude()
	min := -(m + 1)
	if sample < min {
		return min
	}
	if sample > m {
		return m
	}
	return sample
}

// Update pushes one byte into the decoder's state machine. It returns
// true iff a complete sample is now available via Get. For PCM8 every
// byte completes a sample; for the 16-bit formats, the first byte of a
// pair is stashed and the second completes it, endianness dictating byte
// order. Callers must not interleave partial samples across codecs: a
// codec's state is strictly its own byte stream's alignment.
func (c *Codec) Update(b byte) bool {
	switch c.kind {
	case PCM8:
		c.current = int(int8(b))
		return true
	case PCM16LE, PCM16BE:
		if !c.hasPending {
			c.pending = b
			c.hasPending = true
			return false
		}
		var hi, lo byte
		if c.kind == PCM16LE {
			lo, hi = c.pending, b
		} else {
			hi, lo = c.pending, b
		}
		c.current = int(int16(uint16(hi)<<8 | uint16(lo)))
		c.hasPending = false
		return true
	default:
		return false
	}
}

// Get returns the most recently completed sample.
func (c *Codec) Get() int { return c.current }

// Write emits sample as its wire bytes to w. It rejects samples outside
// the signed range: under correct use the caller always clamps first, so
// this indicates a skipped clamp rather than a recoverable condition.
func (c *Codec) Write(w io.Writer, sample int) error {
	m := c.MaxAmplitude()
	min := -(m + 1)
	if sample < min || sample > m {
		return &CodecError{Sample: sample, Min: min, Max: m}
	}

	var buf [2]byte
	var n int
	switch c.kind {
	case PCM8:
		buf[0] = byte(int8(sample))
		n = 1
	case PCM16LE:
		v := uint16(int16(sample))
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		n = 2
	case PCM16BE:
		v := uint16(int16(sample))
		buf[0] = byte(v >> 8)
		buf[1] = byte(v)
		n = 2
	}
	if _, err := w.Write(buf[:n]); err != nil {
		return newIOError(err)
	}
	return nil
}
