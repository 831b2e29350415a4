package pcm

import (
	"math"
	"sync/atomic"
)

// GainController holds one gain track's state and applies the asymmetric
// ramp of spec §4.4: multiplicative growth capped at r = 1 + 1/N_p when
// the signal is quieter than the current gain, additive decay scaled by
// distance-from-ceiling otherwise. Gain is stored atomically (as its
// IEEE-754 bits) so a monitor goroutine can read it without racing the
// audio-producer thread that updates it, the same shape
// tphakala/birdnet-go's GainProcessor uses for its atomic.Value gain.
type GainController struct {
	maxGain float64
	ramp    float64 // r = 1 + 1/N_p
	decayN  float64 // N_p, for the additive decay term

	bits atomic.Uint64
}

// NewGainController constructs a controller seeded at gain 1.0.
// maxGain must be >= 1.0 and perGainWindow (N_p) must be positive.
func NewGainController(maxGain float64, perGainWindow int) (*GainController, error) {
	if maxGain < 1.0 {
		return nil, newConfigError("max gain", errGainTooLow(maxGain))
	}
	if perGainWindow <= 0 {
		return nil, newConfigError("per-gain window", errNonPositiveWindow(perGainWindow))
	}
	g := &GainController{
		maxGain: maxGain,
		ramp:    1.0 + 1.0/float64(perGainWindow),
		decayN:  float64(perGainWindow),
	}
	g.store(1.0)
	return g, nil
}

type errGainTooLow float64

func (e errGainTooLow) Error() string { return "max gain must be >= 1.0" }

type errNonPositiveWindow int

func (e errNonPositiveWindow) Error() string { return "per-gain window must be positive" }

func (g *GainController) load() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *GainController) store(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Gain returns the current gain. Safe to call concurrently with Update.
func (g *GainController) Gain() float64 {
	return g.load()
}

// Update consults the current rolling maximum m (>= 0) for this track and
// advances the gain for the next emitted sample, returning the updated
// value. m == 0 is treated as "no signal yet": clip_gain is taken to be
// maxGain so a silent track doesn't get clamped to +Inf.
func (g *GainController) Update(maxAmplitude int, m int) float64 {
	var clipGain float64
	if m == 0 {
		clipGain = g.maxGain
	} else {
		clipGain = float64(maxAmplitude) / float64(m)
	}
	target := math.Min(g.maxGain, clipGain)

	current := g.load()
	var next float64
	if target > current {
		next = math.Min(current*g.ramp, target)
	} else {
		// Known quirk (preserved per spec): target can sit below 1.0 for
		// brief sample-aligned spikes, driving gain transiently under
		// unity. This is intentional, not a bug to be clamped away.
		next = math.Max(current-(g.maxGain-target)/g.decayN, target)
	}
	g.store(next)
	return next
}
