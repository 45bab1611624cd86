package sim

import (
	"math"

	"github.com/krystian-wojtas/ccreg/reg/delay"
	"github.com/krystian-wojtas/ccreg/reg/meas"
)

// Status reports whether a simulated measurement sample should be
// treated as usable by the regulation loop.
type Status int

const (
	Valid Status = iota
	Invalid
)

// Channel synthesizes one simulated measurement path (field, current or
// voltage): a delay line (or a bare Bypass for an undersampled channel),
// additive noise and tone, and a random invalid-sample injector.
//
// Grounded on regConvSimulateRT's three parallel blocks applying
// regDelaySignalRT then regMeasNoiseAndToneRT to the field, current and
// voltage simulation outputs. invalid_probability has no surviving
// source beyond the distilled specification, so the Bernoulli draw here
// uses the channel's own xorshift32 generator, seeded with the same
// constant as meas.NoiseAndTone.
type Channel struct {
	line   *delay.Line
	bypass bool

	noise *meas.NoiseAndTone

	invalidProbability float64
	rng                uint32
}

// NewChannel builds a channel with delayIters ticks of delay (fractional,
// via delay.Line) or, when undersampled is true, a plain Bypass. noise
// may be nil to disable additive noise/tone.
func NewChannel(delayIters float64, undersampled bool, noise *meas.NoiseAndTone, invalidProbability float64) *Channel {
	c := &Channel{
		bypass:             undersampled,
		noise:              noise,
		invalidProbability: invalidProbability,
		rng:                0x8E35B19C,
	}
	if !undersampled {
		c.line = delay.New(delayIters)
	}
	return c
}

// Reset seeds the delay line (if any) with value, as if it had been
// constant forever.
func (c *Channel) Reset(value float64) {
	if c.line != nil {
		c.line.Reset(value)
	}
}

// Sample pushes the simulator's instantaneous load value through the
// channel's delay, adds noise and tone, and draws the invalid flag.
func (c *Channel) Sample(load float64) (Status, float64) {
	var delayed float64
	if c.bypass {
		delayed = delay.Bypass(load)
	} else {
		_, delayed = c.line.PushAndRead(load)
	}

	if c.noise != nil {
		delayed += c.noise.Next()
	}

	status := Valid
	if c.drawInvalid() {
		status = Invalid
	}

	return status, delayed
}

// drawInvalid advances the channel's own xorshift32 state and reports
// whether this sample should be flagged invalid.
func (c *Channel) drawInvalid() bool {
	if c.invalidProbability <= 0.0 {
		return false
	}

	c.rng ^= c.rng << 13
	c.rng ^= c.rng >> 17
	c.rng ^= c.rng << 5

	uniform := float64(c.rng) / float64(math.MaxUint32)
	return uniform < c.invalidProbability
}
