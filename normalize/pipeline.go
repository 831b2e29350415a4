package normalize

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/meinders/helium/pcm"
)

// Config holds the construction parameters enumerated in spec §6. All
// of it is immutable after NewNormalizer except DCOffsetEnabled, which
// may be flipped at runtime via SetDCOffsetEnabled.
type Config struct {
	Format          pcm.Kind
	Channels        int
	SampleRate      int
	WindowSeconds   float64
	MaxGain         float64
	PerChannel      bool
	DCOffsetEnabled bool

	// EventQueueDepth bounds the monitor's event buffer. Zero selects a
	// small default.
	EventQueueDepth int
}

type flusher interface {
	Flush() error
}

// Normalizer is the per-channel pipeline of spec §4.6: gain control,
// DC-bias removal, a shared delay line, and a rolling maximum, wired so
// that the emitted sample never needs clamping in steady state. It
// implements SampleSink itself and owns the downstream io.Writer
// exclusively for its lifetime, per the single-writer concurrency model
// of spec §5.
type Normalizer struct {
	codec      *pcm.Codec
	channels   int
	perChannel bool
	maxAmp     int

	window     *pcm.Window
	rollingMax []*pcm.RollingMax
	gains      []*pcm.GainController
	dc         []*pcm.DCEstimator
	dcEnabled  atomic.Bool

	cSrc int // source channel of the next incoming sample

	sink    io.Writer
	monitor *Monitor

	closed bool
}

// NewNormalizer builds a Normalizer writing its output to sink. sink is
// owned exclusively by the Normalizer until Close.
func NewNormalizer(cfg Config, sink io.Writer) (*Normalizer, error) {
	if cfg.Channels < 1 {
		return nil, errInvalid("channels")
	}
	if cfg.SampleRate <= 0 {
		return nil, errInvalid("sample rate")
	}
	if cfg.WindowSeconds <= 0 {
		return nil, errInvalid("window seconds")
	}
	if cfg.MaxGain < 1.0 {
		return nil, errInvalid("max gain")
	}
	if sink == nil {
		return nil, errInvalid("sink")
	}

	codec, err := pcm.NewCodec(cfg.Format)
	if err != nil {
		return nil, err
	}

	windowLen := int(float64(cfg.SampleRate) * float64(cfg.Channels) * cfg.WindowSeconds)
	if windowLen <= 0 {
		return nil, errInvalid("window seconds")
	}
	perGainLen := windowLen
	tracks := 1
	if cfg.PerChannel {
		perGainLen = windowLen / cfg.Channels
		tracks = cfg.Channels
	}
	if perGainLen <= 0 {
		return nil, errInvalid("window seconds")
	}

	window, err := pcm.NewWindow(windowLen)
	if err != nil {
		return nil, err
	}

	rollingMax := make([]*pcm.RollingMax, tracks)
	gains := make([]*pcm.GainController, tracks)
	for i := 0; i < tracks; i++ {
		rm, err := pcm.NewRollingMax(perGainLen)
		if err != nil {
			return nil, err
		}
		rollingMax[i] = rm

		g, err := pcm.NewGainController(cfg.MaxGain, perGainLen)
		if err != nil {
			return nil, err
		}
		gains[i] = g
	}

	dc := make([]*pcm.DCEstimator, cfg.Channels)
	for i := range dc {
		d, err := pcm.NewDCEstimator(cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		dc[i] = d
	}

	depth := cfg.EventQueueDepth
	if depth <= 0 {
		depth = 64
	}

	n := &Normalizer{
		codec:      codec,
		channels:   cfg.Channels,
		perChannel: cfg.PerChannel,
		maxAmp:     codec.MaxAmplitude(),
		window:     window,
		rollingMax: rollingMax,
		gains:      gains,
		dc:         dc,
		sink:       sink,
		monitor:    NewMonitor(cfg.SampleRate, depth),
	}
	n.dcEnabled.Store(cfg.DCOffsetEnabled)
	return n, nil
}

// OnAmplitude registers an amplitude listener (spec §4.7).
func (n *Normalizer) OnAmplitude(fn AmplitudeFunc) { n.monitor.OnAmplitude(fn) }

// OnGain registers a gain listener (spec §4.7).
func (n *Normalizer) OnGain(fn GainFunc) { n.monitor.OnGain(fn) }

// SetDCOffsetEnabled toggles DC correction at runtime (spec §6). When
// disabled, incoming samples enter the window unmodified, but the
// estimator keeps tracking so re-enabling doesn't restart cold.
func (n *Normalizer) SetDCOffsetEnabled(enabled bool) { n.dcEnabled.Store(enabled) }

// DCOffset reports the current bias estimate for source channel ch, used
// in scenario S2's assertions.
func (n *Normalizer) DCOffset(ch int) float64 { return n.dc[ch].Offset() }

// Gain reports the current gain of track (channel if per_channel, else
// 0).
func (n *Normalizer) Gain(track int) float64 { return n.gains[track].Gain() }

func (n *Normalizer) trackOf(channel int) int {
	if n.perChannel {
		return channel
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Write decodes p through the codec and feeds every completed sample
// into the pipeline. It implements io.Writer so a Normalizer can sit
// directly in front of an encoder/WAV collaborator.
func (n *Normalizer) Write(p []byte) (int, error) {
	if n.closed {
		return 0, errClosed{}
	}
	for _, b := range p {
		if n.codec.Update(b) {
			if err := n.WriteSample(n.cSrc, n.codec.Get()); err != nil {
				return 0, err
			}
		}
	}
	return len(p), nil
}

// WriteSample runs one iteration of the §4.6 pipeline for a single
// decoded sample s arriving on source channel. Exported so collaborators
// that already have decoded samples (e.g. a test harness) can bypass the
// byte codec.
func (n *Normalizer) WriteSample(channel, s int) error {
	track := n.trackOf(channel)

	// Step 2: advance the gain using the rolling maximum as it stood
	// before this step's remove/add, i.e. including the sample about to
	// be ejected but not yet this step's incoming sample.
	g := n.gains[track].Update(n.maxAmp, n.rollingMax[track].Get())

	// Step 3: DC correction on the source channel.
	var adjusted int
	if n.dcEnabled.Load() {
		n.dc[channel].Update(s)
		adjusted = n.dc[channel].Correct(s)
	} else {
		n.dc[channel].Update(s)
		adjusted = s
	}

	// Step 4: push into the shared delay line.
	wasFull := n.window.IsFull()
	ejected := n.window.Add(adjusted)

	// Step 5: emit the ejected sample, amplified by the gain just
	// computed for its track.
	if wasFull {
		y := int(math.Round(float64(ejected) * g))
		clamped := n.codec.Clamp(y)
		if err := n.codec.Write(n.sink, clamped); err != nil {
			return err
		}
	}

	// Step 6: rolling maximum bookkeeping. remove(|e|) is a harmless
	// no-op while the window is still filling, since e is the 0
	// sentinel and the live maximum (if any) won't match it unless it
	// is genuinely 0.
	n.rollingMax[track].Remove(absInt(ejected))
	if err := n.rollingMax[track].Add(absInt(adjusted)); err != nil {
		return err
	}

	// Step 7: monitor dispatch, measured on the incoming (post-DC)
	// sample, keyed by the source channel cursor per spec §9.
	amp := float64(absInt(adjusted)) / float64(n.maxAmp)
	n.monitor.Observe(channel, amp, g)

	// Step 8: advance the source cursor.
	n.cSrc = (n.cSrc + 1) % n.channels
	return nil
}

// Flush drains the delay line, emitting every buffered sample at its
// track's current gain without recomputing it, then propagates flush to
// the downstream sink if it supports one. It always drains the full
// window even if the sink errors partway through, per spec §5; the
// first error encountered is returned after draining completes.
func (n *Normalizer) Flush() error {
	size := n.window.Size()
	channel := ((n.cSrc-size)%n.channels + n.channels) % n.channels

	var firstErr error
	for i := 0; i < size; i++ {
		v := n.window.Remove()
		track := n.trackOf(channel)
		n.rollingMax[track].Remove(absInt(v))

		g := n.gains[track].Gain()
		y := int(math.Round(float64(v) * g))
		clamped := n.codec.Clamp(y)
		if err := n.codec.Write(n.sink, clamped); err != nil && firstErr == nil {
			firstErr = err
		}
		channel = (channel + 1) % n.channels
	}

	if f, ok := n.sink.(flusher); ok {
		if err := f.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes the pipeline and propagates close downstream. It is
// idempotent: a second call is a no-op returning nil.
func (n *Normalizer) Close() error {
	if n.closed {
		return nil
	}
	flushErr := n.Flush()
	n.closed = true
	n.monitor.Close()

	var closeErr error
	if c, ok := n.sink.(io.Closer); ok {
		closeErr = c.Close()
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

type errClosed struct{}

func (errClosed) Error() string { return "normalize: write to closed normalizer" }
