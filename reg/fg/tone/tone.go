// Package tone implements the test-tone function family: STEPS
// (rectangular staircase), SQUARE, SINE and COSINE, each running for a
// fixed number of cycles of a given period and peak-to-peak amplitude
// around a baseline, with an optional Hann window tapering the envelope
// in and out over the tone's whole duration.
//
// original_source/libfg did not retain a header for this family at all
// (the family description comes from the distilled specification
// alone), so this package is a from-specification design grounded on
// the rest of libfg's (init, pars, Gen) shape rather than any specific
// ported source. STEPS is built as a four-level-per-cycle staircase,
// a reasonable reading of "rectangular staircase" absent a header to
// pin the exact step count.
package tone

import (
	"math"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

// Kind selects the waveform shape.
type Kind int

const (
	Steps Kind = iota
	Square
	Sine
	Cosine
)

// Config is how a caller asks for a test tone.
type Config struct {
	Kind        Kind
	Period      float64
	PeakToPeak  float64
	NumCycles   float64
	Hann        bool
	BaselineRef float64
}

// Pars is the fully resolved, ready-to-generate tone.
type Pars struct {
	Kind      Kind
	Delay     float64
	Period    float64
	Amplitude float64
	Duration  float64
	Hann      bool
	Baseline  float64
}

// Init validates a tone against limits (its peak excursion) and fills
// pars ready for Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay float64, pars *Pars, meta *fg.Meta) fg.Error {
	if config.Period <= 0 || config.NumCycles <= 0 {
		return fg.ErrBadParameter
	}

	pars.Kind = config.Kind
	pars.Delay = delay
	pars.Period = config.Period
	pars.Amplitude = config.PeakToPeak / 2.0
	pars.Duration = config.Period * config.NumCycles
	pars.Hann = config.Hann
	pars.Baseline = config.BaselineRef

	var m fg.Meta
	fg.ResetMeta(&m, config.BaselineRef)

	peak := config.BaselineRef + pars.Amplitude
	trough := config.BaselineRef - pars.Amplitude
	if e := fg.CheckRef(limits, polarity, peak, 0, 0, &m); e != fg.ErrNone {
		if meta != nil {
			*meta = m
		}
		return e
	}
	if e := fg.CheckRef(limits, polarity, trough, 0, 0, &m); e != fg.ErrNone {
		if meta != nil {
			*meta = m
		}
		return e
	}

	m.Duration = pars.Duration
	m.Range.Min = trough
	m.Range.Max = peak
	m.Range.End = config.BaselineRef

	if meta != nil {
		*meta = m
	}
	return fg.ErrNone
}

func waveform(kind Kind, phase float64) float64 {
	switch kind {
	case Sine:
		return math.Sin(phase)
	case Cosine:
		return math.Cos(phase)
	case Square:
		if math.Sin(phase) >= 0 {
			return 1.0
		}
		return -1.0
	default: // Steps: four-level staircase per cycle.
		quarter := math.Mod(phase, 2*math.Pi)
		if quarter < 0 {
			quarter += 2 * math.Pi
		}
		switch {
		case quarter < math.Pi/2:
			return -1.0
		case quarter < math.Pi:
			return -1.0 / 3.0
		case quarter < 3*math.Pi/2:
			return 1.0 / 3.0
		default:
			return 1.0
		}
	}
}

// Gen evaluates the tone at time, returning its status and value.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	if time < pars.Delay {
		return fg.BeforeFunc, pars.Baseline
	}
	if time >= pars.Delay+pars.Duration {
		return fg.AfterFunc, pars.Baseline
	}

	tau := time - pars.Delay
	phase := 2 * math.Pi * tau / pars.Period

	v := pars.Amplitude * waveform(pars.Kind, phase)

	if pars.Hann && pars.Duration > 0 {
		envelope := 0.5 * (1.0 - math.Cos(2*math.Pi*tau/pars.Duration))
		v *= envelope
	}

	return fg.DuringFunc, pars.Baseline + v
}
