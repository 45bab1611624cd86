// Package lim implements measurement and reference limit checks:
// trip/low/zero measurement flags, a first-order RMS-squared thermal
// trip, reference clip/rate limiting with the FP32 margin workaround,
// and the non-rectangular Q41 voltage envelope.
//
// Grounded on original_source/libreg/src/regLim.c (regLimMeasInit,
// regLimRmsInit, regLimRefInit, regLimVrefInit, regLimMeasRT,
// regLimMeasRmsRT, regLimVrefCalcRT, regLimRefRT), carried over field
// names and constants verbatim where the C names translate directly.
package lim

import "math"

const (
	// tripMargin expands the absolute trip thresholds beyond the user's
	// positive/negative limits (REG_LIM_TRIP in the original library).
	tripMargin = 0.01

	// hysteresis is the fractional hysteresis band used for the low/zero
	// measurement flags and the RMS warning flag (REG_LIM_HYSTERESIS).
	hysteresis = 0.02

	// clipMargin expands the user's reference limits into the internal
	// clip limits (REG_LIM_CLIP).
	clipMargin = 0.001

	// fp32Margin is the relative margin applied to prev_ref in the rate
	// clip test. Without it, a rate limit many orders of magnitude
	// smaller than the reference range can trip a false-positive rate
	// clip purely from single-precision rounding.
	fp32Margin = 2.0e-07
)

// MeasFlags reports the trip/low/zero state of a measurement.
type MeasFlags struct {
	Trip bool // recomputed on every Check: no hysteresis and no latch
	Low  bool
	Zero bool
}

// MeasLimits checks a measurement against absolute trip, low and zero
// thresholds, with hysteresis on the low/zero flags (but not on trip).
type MeasLimits struct {
	posTrip, negTrip       float64
	low, zero              float64
	lowHyst, zeroHyst      float64
	invert                 bool
	flags                  MeasFlags
}

// NewMeasLimits builds a measurement limit block. negLim must be <= 0 for
// a bipolar channel, or exactly 0 to disable the negative trip.
func NewMeasLimits(pos, neg, low, zero float64, invert bool) *MeasLimits {
	return &MeasLimits{
		posTrip:  pos * (1.0 + tripMargin),
		negTrip:  neg * (1.0 + tripMargin),
		low:      low,
		zero:     zero,
		lowHyst:  low * (1.0 - hysteresis),
		zeroHyst: zero * (1.0 - hysteresis),
		invert:   invert,
	}
}

// Check runs the real-time trip/low/zero evaluation and returns the
// updated (and stored) flags.
func (m *MeasLimits) Check(meas float64) MeasFlags {
	if m.invert {
		meas = -meas
	}

	absMeas := math.Abs(meas)

	m.flags.Trip = meas > m.posTrip || (m.negTrip < 0.0 && meas < m.negTrip)

	if m.zero > 0.0 {
		if m.flags.Zero {
			if absMeas > m.zero {
				m.flags.Zero = false
			}
		} else if absMeas < m.zeroHyst {
			m.flags.Zero = true
		}
	}

	if m.low > 0.0 {
		if m.flags.Low {
			if absMeas > m.low {
				m.flags.Low = false
			}
		} else if absMeas < m.lowHyst {
			m.flags.Low = true
		}
	}

	return m.flags
}

// Flags returns the most recently computed flags without re-evaluating.
func (m *MeasLimits) Flags() MeasFlags { return m.flags }

// RmsFlags reports the sticky warning/fault state of the RMS trip.
type RmsFlags struct {
	Warning bool
	Fault   bool
}

// Rms implements the single-pole low-pass filter on meas² used to detect
// sustained thermal overload.
type Rms struct {
	filterFactor    float64
	rms2Fault       float64
	rms2Warning     float64
	rms2WarningHyst float64
	meas2Filter     float64
	flags           RmsFlags
}

// NewRms builds an RMS trip block. If tc <= 0 the trip is disabled.
func NewRms(warning, fault, tc, period float64) *Rms {
	r := &Rms{}

	if tc > 0.0 {
		r.filterFactor = period / tc
		r.rms2Fault = fault * fault
		r.rms2Warning = warning * warning
		r.rms2WarningHyst = r.rms2Warning * (1.0 - 2.0*hysteresis)
	}

	return r
}

// Check updates the squared-measurement low-pass filter and evaluates the
// warning/fault thresholds. Allocation-free, safe to call every tick.
func (r *Rms) Check(meas float64) RmsFlags {
	if r.filterFactor <= 0.0 {
		return r.flags
	}

	r.meas2Filter += (meas*meas - r.meas2Filter) * r.filterFactor

	r.flags.Fault = r.rms2Fault > 0.0 && r.meas2Filter > r.rms2Fault

	if r.rms2Warning > 0.0 {
		if !r.flags.Warning {
			if r.meas2Filter > r.rms2Warning {
				r.flags.Warning = true
			}
		} else if r.meas2Filter < r.rms2WarningHyst {
			r.flags.Warning = false
		}
	}

	return r.flags
}

// Flags returns the most recently computed flags without re-evaluating.
func (r *Rms) Flags() RmsFlags { return r.flags }

// RefFlags reports whether the last Clip call clipped the absolute value
// or the rate of change.
type RefFlags struct {
	Clip bool
	Rate bool
}

// Ref implements the absolute + rate reference clip. It also backs the
// voltage Q41 envelope via RecalcVoltageEnvelope, which mutates
// MinClip/MaxClip in place each tick.
type Ref struct {
	Pos, Min, Neg, Rate, Acceleration float64

	MinClip, MaxClip float64
	RateClip         float64
	Unipolar         bool
	Invert           bool
	CloseLoop        float64

	// Q41 exclusion zone (set only via NewVoltageRef); MaxClip/MinClip above
	// are recalculated from these by RecalcVoltageEnvelope.
	dvdi              float64
	v0                float64
	iQuadrants41Max   float64
	maxClipUser       float64
	minClipUser       float64

	flags RefFlags
}

// NewRef builds a reference limit block for a bipolar or unipolar channel.
// neg < 0 selects bipolar; neg == 0 selects unipolar.
func NewRef(pos, min, neg, rate, acceleration, closeLoop float64) *Ref {
	r := &Ref{
		Pos: pos, Min: min, Neg: neg, Rate: rate, Acceleration: acceleration,
		RateClip: rate * (1.0 + clipMargin),
		MaxClip:  pos * (1.0 + clipMargin),
	}

	if neg < 0.0 {
		r.Unipolar = false
		r.MinClip = neg * (1.0 + clipMargin)
		r.CloseLoop = -1.0e30
	} else {
		r.Unipolar = true
		r.MinClip = 0.0
		r.CloseLoop = closeLoop
	}

	// No Q41 zone: RecalcVoltageEnvelope restores the user box unchanged.
	r.maxClipUser, r.minClipUser = r.MaxClip, r.MinClip
	r.iQuadrants41Max = -1.0e10

	return r
}

// NewVoltageRef builds a reference limit block for a voltage channel,
// optionally with a Q41 exclusion zone. iQuadrants41/vQuadrants41 are
// each a 2-element [start, end] pair; a zone with under 1 A of spread is
// ignored.
func NewVoltageRef(pos, neg, rate, acceleration float64, iQuadrants41, vQuadrants41 [2]float64) *Ref {
	r := &Ref{
		Pos: pos, Min: 0, Neg: neg, Rate: rate, Acceleration: acceleration,
		RateClip:    rate * (1.0 + clipMargin),
		maxClipUser: pos * (1.0 + clipMargin),
	}

	if neg < 0.0 {
		r.Unipolar = false
		r.minClipUser = neg * (1.0 + clipMargin)
	} else {
		r.Unipolar = true
		r.minClipUser = 0.0
	}

	r.iQuadrants41Max = -1.0e10

	deltaI := iQuadrants41[1] - iQuadrants41[0]
	if deltaI >= 1.0 {
		r.dvdi = (vQuadrants41[1] - vQuadrants41[0]) / deltaI
		r.v0 = (vQuadrants41[0] - r.dvdi*iQuadrants41[0]) * (1.0 + clipMargin)
		r.iQuadrants41Max = iQuadrants41[1]
	}

	r.RecalcVoltageEnvelope(0.0)

	return r
}

// RecalcVoltageEnvelope recomputes MinClip/MaxClip from the measured
// current each tick, intersecting the user box with the Q41 sloped
// exclusion.
func (r *Ref) RecalcVoltageEnvelope(iMeas float64) {
	if r.Invert {
		iMeas = -iMeas
	}

	r.MaxClip = r.maxClipUser

	if iMeas < r.iQuadrants41Max {
		vLim := r.v0 + r.dvdi*iMeas
		if vLim < 0.0 {
			vLim = 0.0
		}

		if vLim < r.MaxClip {
			r.MaxClip = vLim
		}
	}

	r.MinClip = r.minClipUser

	if iMeas > -r.iQuadrants41Max {
		vLim := -r.v0 + r.dvdi*iMeas
		if vLim > 0.0 {
			vLim = 0.0
		}

		if vLim > r.MinClip {
			r.MinClip = vLim
		}
	}
}

// Clip applies the absolute clip followed by the rate clip and returns
// the clipped reference. Flags() reports which limits were active.
//
// The fp32Margin term on prevRef defeats a false-positive rate trip when
// rate·period is many orders of magnitude smaller than MaxClip and the
// relative precision of binary32 arithmetic becomes significant.
func (r *Ref) Clip(period, ref, prevRef float64) float64 {
	clipped := false

	if !r.Invert {
		switch {
		case ref < r.MinClip:
			ref = r.MinClip
			clipped = true
		case ref > r.MaxClip:
			ref = r.MaxClip
			clipped = true
		}
	} else {
		switch {
		case ref > -r.MinClip:
			ref = -r.MinClip
			clipped = true
		case ref < -r.MaxClip:
			ref = -r.MaxClip
			clipped = true
		}
	}

	r.flags.Clip = clipped

	rateFlag := false

	if r.RateClip > 0.0 {
		delta := ref - prevRef

		switch {
		case delta > 0.0:
			rateLim := prevRef*(1.0+fp32Margin) + r.RateClip*period
			if ref > rateLim {
				ref = rateLim
				rateFlag = true
			}

		case delta < 0.0:
			rateLim := prevRef*(1.0-fp32Margin) - r.RateClip*period
			if ref < rateLim {
				ref = rateLim
				rateFlag = true
			}
		}
	}

	r.flags.Rate = rateFlag

	return ref
}

// Flags returns the most recent Clip outcome.
func (r *Ref) Flags() RefFlags { return r.flags }
