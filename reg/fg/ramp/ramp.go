// Package ramp implements the RAMP function family: a symmetric
// parabola-parabola S-curve from an initial reference to a final one,
// with a time-shift mechanism that lets a ramp truncated by an external
// rate clip rejoin its parabolic tail smoothly instead of snapping back
// onto the original, now-unreachable, timeline.
//
// original_source/libfg only retained ramp.h, not ramp.c, so the
// segment math below is a from-specification design grounded on the
// header's field layout (fg_ramp_config/fg_ramp_pars in
// original_source/libfg/inc/libfg/ramp.h) and on the family description
// in the distilled specification, not a ported algorithm.
package ramp

import (
	"math"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

// NSegs is the number of segments in a RAMP: accelerate, decelerate.
const NSegs = 2

// Config is how a caller asks for a ramp.
type Config struct {
	Final        float64
	Acceleration float64 // must be strictly positive
}

// Pars is the fully resolved, ready-to-generate ramp.
type Pars struct {
	PosRampFlag bool

	Delay        float64
	Acceleration float64
	Deceleration float64

	Ref  [NSegs + 1]float64
	Time [NSegs + 1]float64

	Offset float64

	PrevRampRef     float64
	PrevReturnedRef float64
	PrevTime        float64
	TimeShift       float64
}

// Calc derives the segment breakpoints for a ramp from initRef to
// config.Final starting at delay, and records its shape in meta.
func Calc(config *Config, pars *Pars, delay, initRef float64, meta *fg.Meta) {
	accelMag := math.Abs(config.Acceleration)
	delta := config.Final - initRef

	sign := 1.0
	if delta < 0 {
		sign = -1.0
	}
	pars.PosRampFlag = sign > 0

	accel := sign * accelMag

	tHalf := 0.0
	if accelMag > 0.0 {
		tHalf = math.Sqrt(math.Abs(delta) / accelMag)
	}

	pars.Delay = delay
	pars.Acceleration = accel
	pars.Deceleration = -accel

	pars.Time[0] = delay
	pars.Time[1] = delay + tHalf
	pars.Time[2] = delay + 2.0*tHalf

	pars.Ref[0] = initRef
	pars.Ref[1] = initRef + 0.5*accel*tHalf*tHalf
	pars.Ref[2] = config.Final

	pars.Offset = 2.0 * pars.Ref[1]

	pars.PrevRampRef = initRef
	pars.PrevReturnedRef = initRef
	pars.PrevTime = delay
	pars.TimeShift = 0.0

	if meta != nil {
		meta.Duration = 2.0 * tHalf
		meta.Range.Start = initRef
		meta.Range.End = config.Final
		if initRef <= config.Final {
			meta.Range.Min = initRef
			meta.Range.Max = config.Final
		} else {
			meta.Range.Min = config.Final
			meta.Range.Max = initRef
		}
	}
}

// Init validates a ramp request against limits and, if accepted, fills
// pars ready for Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay, ref float64, pars *Pars, meta *fg.Meta) fg.Error {
	if config.Acceleration <= 0.0 {
		return fg.ErrBadParameter
	}

	var m fg.Meta
	fg.ResetMeta(&m, ref)

	Calc(config, pars, delay, ref, &m)

	finalRate := 0.0
	finalAccel := 0.0
	if e := fg.CheckRef(limits, polarity, config.Final, finalRate, finalAccel, &m); e != fg.ErrNone {
		if meta != nil {
			*meta = m
		}
		return e
	}

	if meta != nil {
		*meta = m
	}
	return fg.ErrNone
}

// SetReturnedRef tells the ramp what value was actually applied this
// tick (which may differ from what Gen returned, if something
// downstream clipped it). Gen uses the discrepancy to re-time the
// decelerating segment so it still arrives at the final reference with
// zero rate, instead of retracing the original, now-stale, timeline.
// Gen records each value it returns as the returned ref, so without a
// call here the ramp follows its own unclipped timeline.
func (pars *Pars) SetReturnedRef(actual float64) {
	pars.PrevReturnedRef = actual
}

// Gen evaluates the ramp at time, returning its status and value.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	shifted := time + pars.TimeShift

	switch {
	case shifted < pars.Time[0]:
		return fg.BeforeFunc, pars.Ref[0]

	case shifted >= pars.Time[2]:
		return fg.AfterFunc, pars.Ref[2]

	case shifted <= pars.Time[1]:
		tt := shifted - pars.Time[0]
		ref := pars.Ref[0] + 0.5*pars.Acceleration*tt*tt
		pars.PrevRampRef = ref
		pars.PrevReturnedRef = ref
		pars.PrevTime = time
		return fg.DuringFunc, ref

	default:
		// Decelerating segment: if the previous tick's returned ref
		// drifted from what this ramp computed (an external rate
		// clip truncated it), re-time so the remaining parabola still
		// lands on Ref[2] with zero rate, by finding the virtual time
		// on the original decelerating parabola that matches the
		// actual last-applied reference and shifting to it.
		drift := pars.PrevReturnedRef - pars.PrevRampRef
		if math.Abs(drift) > 1e-9 && pars.Acceleration != 0.0 {
			remaining := pars.Ref[2] - pars.PrevReturnedRef
			virtualTT := math.Sqrt(math.Abs(2.0 * remaining / pars.Acceleration))
			wantShifted := pars.Time[2] - virtualTT
			pars.TimeShift += wantShifted - shifted
			shifted = time + pars.TimeShift
		}

		tt := pars.Time[2] - shifted
		ref := pars.Ref[2] - 0.5*pars.Acceleration*tt*tt
		pars.PrevRampRef = ref
		pars.PrevReturnedRef = ref
		pars.PrevTime = time
		return fg.DuringFunc, ref
	}
}
