// Package trim implements the TRIM function family — LTRIM (a straight
// line) and CTRIM (a cubic a·t³ + c·t, zero rate at both ends) between
// two reference levels — plus Pulse, an LTRIM placed at an arbitrary
// start time rather than run immediately.
//
// original_source/libfg only retained trim.h, not trim.c. LTRIM's
// evaluation is immediate from the header (fg_trim_pars in
// original_source/libfg/inc/libfg/trim.h already carries the cubic
// coefficients a/c directly). CTRIM's coefficient derivation — solving
// for a and c such that r(0)=ref_initial, r(duration)=ref_final, and
// r'(0)=r'(duration)=0 — is a from-specification design, since the
// derivation itself isn't in the retrievable source.
package trim

import (
	"github.com/krystian-wojtas/ccreg/reg/fg"
)

// Type selects LTRIM or CTRIM.
type Type int

const (
	Linear Type = iota
	Cubic
)

// Config is how a caller asks for a trim.
type Config struct {
	Type     Type
	Duration float64
	Final    float64
}

// Pars is the fully resolved, ready-to-generate trim.
type Pars struct {
	Typ         Type
	Delay       float64
	EndTime     float64
	TimeOffset  float64
	RefInitial  float64
	RefFinal    float64
	RefOffset   float64
	A, C        float64
}

// Calc derives the trim's coefficients.
//
// CTRIM is built around a symmetric cubic centered on the segment's
// midpoint: with time_offset = duration/2 and tau = t - time_offset
// ranging over [-time_offset, +time_offset], r(tau) = a*tau^3 + c*tau +
// ref_offset has r'(±time_offset) = 0 (3a*tau^2 + c = 0 at the
// endpoints) and r(-time_offset..+time_offset) spanning ref_initial to
// ref_final, which gives a and c in closed form.
func Calc(config *Config, pars *Pars, delay, initRef float64) {
	pars.Typ = config.Type
	pars.Delay = delay
	pars.EndTime = delay + config.Duration
	pars.RefInitial = initRef
	pars.RefFinal = config.Final
	pars.RefOffset = (initRef + config.Final) / 2.0

	switch config.Type {
	case Linear:
		pars.TimeOffset = 0
		pars.A = 0
		pars.C = 0

	case Cubic:
		half := config.Duration / 2.0
		pars.TimeOffset = half
		delta := config.Final - initRef
		if half == 0 {
			pars.A, pars.C = 0, 0
			break
		}
		// r(half) - r(-half) = 2*(a*half^3 + c*half) = delta, and
		// r'(half) = 3*a*half^2 + c = 0 => c = -3*a*half^2.
		// Substituting: 2*half*(a*half^2 - 3*a*half^2) = delta
		// => -4*a*half^3 = delta.
		pars.A = -delta / (4.0 * half * half * half)
		pars.C = -3.0 * pars.A * half * half
	}
}

// Init validates a trim request against limits and fills pars ready for
// Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay, ref float64, pars *Pars, meta *fg.Meta) fg.Error {
	if config.Duration <= 0 {
		return fg.ErrBadParameter
	}

	var m fg.Meta
	fg.ResetMeta(&m, ref)

	Calc(config, pars, delay, ref)

	if e := fg.CheckRef(limits, polarity, config.Final, 0, 0, &m); e != fg.ErrNone {
		if meta != nil {
			*meta = m
		}
		return e
	}

	m.Duration = config.Duration
	m.Range.End = config.Final
	if config.Final < ref {
		m.Range.Min, m.Range.Max = config.Final, ref
	} else {
		m.Range.Min, m.Range.Max = ref, config.Final
	}

	if meta != nil {
		*meta = m
	}
	return fg.ErrNone
}

// Gen evaluates the trim at time, returning its status and value.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	switch {
	case time < pars.Delay:
		return fg.BeforeFunc, pars.RefInitial
	case time >= pars.EndTime:
		return fg.AfterFunc, pars.RefFinal
	}

	switch pars.Typ {
	case Linear:
		frac := (time - pars.Delay) / (pars.EndTime - pars.Delay)
		return fg.DuringFunc, pars.RefInitial + frac*(pars.RefFinal-pars.RefInitial)

	default: // Cubic
		tau := time - pars.Delay - pars.TimeOffset
		return fg.DuringFunc, pars.A*tau*tau*tau + pars.C*tau + pars.RefOffset
	}
}

// Pulse is an LTRIM of the requested duration placed at a requested
// start time: the output holds ref_initial until the pulse starts, runs
// the straight line, then holds ref_final.
type Pulse struct {
	pars Pars
}

// NewPulse builds a pulse from initRef to final, running for duration
// starting at startTime.
func NewPulse(initRef, final, startTime, duration float64) *Pulse {
	p := &Pulse{}
	Calc(&Config{Type: Linear, Duration: duration, Final: final}, &p.pars, startTime, initRef)
	return p
}

// Gen evaluates the pulse at time.
func (p *Pulse) Gen(time float64) (fg.Status, float64) {
	return Gen(&p.pars, time)
}
