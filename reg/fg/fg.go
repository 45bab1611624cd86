// Package fg holds the pieces every reference function family shares:
// the BEFORE/DURING/AFTER generation status, the limit-check block each
// family's init runs the proposed trajectory through, and the meta
// summary (duration, start/end, min/max, and — on rejection — which
// check failed and with what values) an init call hands back.
//
// Grounded on original_source/libfg/inc/libfg.h and
// original_source/libfg/src/fg.c (fgCheckRef, fgResetMeta, fgSetMinMax).
// The individual families (ramp, plep, pppl, table, trim, tone) only had
// their headers retained in original_source, not their .c files, so
// each family's own generation algorithm is a from-specification design
// grounded on its header's field layout rather than ported code; that is
// called out again in each family's package doc comment.
package fg

import "math"

// Status reports where along a function's timeline a Gen call landed.
type Status int

const (
	BeforeFunc Status = iota
	DuringFunc
	AfterFunc
)

// Error names why an Init call rejected a proposed trajectory.
type Error int

const (
	ErrNone Error = iota
	ErrBadArrayLen
	ErrBadParameter
	ErrInvalidTime
	ErrOutOfAccelerationLimits
	ErrOutOfLimits
	ErrOutOfRateLimits
	ErrOutOfVoltageLimits
)

func (e Error) String() string {
	switch e {
	case ErrNone:
		return "OK"
	case ErrBadArrayLen:
		return "BAD_ARRAY_LEN"
	case ErrBadParameter:
		return "BAD_PARAMETER"
	case ErrInvalidTime:
		return "INVALID_TIME"
	case ErrOutOfAccelerationLimits:
		return "OUT_OF_ACCELERATION_LIMITS"
	case ErrOutOfLimits:
		return "OUT_OF_LIMITS"
	case ErrOutOfRateLimits:
		return "OUT_OF_RATE_LIMITS"
	case ErrOutOfVoltageLimits:
		return "OUT_OF_VOLTAGE_LIMITS"
	default:
		return "UNKNOWN"
	}
}

// Polarity selects how Limits.Neg/Min are interpreted.
type Polarity int

const (
	PolarityNormal Polarity = iota
	PolarityNegative
	PolarityAuto
)

// clipLimitFactor widens every limit by 0.1% before comparison, so a
// trajectory that lands exactly on a limit by construction (as every
// family here is designed to) is never spuriously rejected by floating
// point rounding.
const clipLimitFactor = 0.001

// Limits is the {pos, min, neg, rate, acceleration} block every family's
// init checks its proposed trajectory against, plus an optional
// converter-specific callback (used by the orchestrator to back-compute
// a voltage envelope from current and its rate of change).
type Limits struct {
	Pos          float64
	Min          float64
	Neg          float64
	Rate         float64
	Acceleration float64

	UserCheck func(polarity Polarity, negated bool, ref, rate, acceleration float64) Error
}

// MetaError carries the check that rejected a trajectory (Index) and the
// numbers behind it: for a rate or acceleration check the limit, the
// clip threshold actually applied, and the offending value; for the
// absolute check the expanded upper bound, the offending value, and the
// expanded lower bound — matching fg_meta_error's data[4] (here trimmed
// to 3 used slots plus the index).
type MetaError struct {
	Index Error
	Data  [4]float64
}

// Meta summarizes an accepted (or rejected) trajectory.
type Meta struct {
	Error    MetaError
	Duration float64
	Range    struct {
		Start, End, Min, Max float64
	}
}

// ResetMeta reinitializes m to describe a zero-duration function sitting
// at initRef, clearing any previous error.
func ResetMeta(m *Meta, initRef float64) {
	m.Error = MetaError{}
	m.Duration = 0
	m.Range.Start = initRef
	m.Range.End = initRef
	m.Range.Min = initRef
	m.Range.Max = initRef
}

// SetMinMax folds ref into m's running min/max.
func SetMinMax(m *Meta, ref float64) {
	if ref > m.Range.Max {
		m.Range.Max = ref
	} else if ref < m.Range.Min {
		m.Range.Min = ref
	}
}

// CheckRef validates a single (ref, rate, acceleration) sample against
// limits, normalizing/inverting them first according to polarity.
// limits == nil always passes. On a limit, rate or acceleration
// rejection it records the failed check and its numbers (see MetaError)
// into meta.Error (when meta is non-nil) before returning the specific
// error.
func CheckRef(limits *Limits, polarity Polarity, ref, rate, acceleration float64, meta *Meta) Error {
	if limits == nil {
		return ErrNone
	}

	invert := polarity == PolarityNegative ||
		(polarity == PolarityAuto && meta != nil && meta.Range.Min < 0.0)

	var max, min float64
	if invert {
		max = -(1.0 - clipLimitFactor) * limits.Min
		min = -(1.0 + clipLimitFactor) * limits.Pos
	} else {
		max = (1.0 + clipLimitFactor) * limits.Pos
		if limits.Neg < 0.0 {
			min = (1.0 + clipLimitFactor) * limits.Neg
		} else {
			min = (1.0 - clipLimitFactor) * limits.Min
		}
	}

	if ref > max || ref < min {
		if meta != nil {
			meta.Error.Index = ErrOutOfLimits
			meta.Error.Data[0] = max
			meta.Error.Data[1] = ref
			meta.Error.Data[2] = min
		}
		return ErrOutOfLimits
	}

	if limits.Rate > 0.0 {
		limit := (1.0 + clipLimitFactor) * limits.Rate
		if math.Abs(rate) > limit {
			if meta != nil {
				meta.Error.Index = ErrOutOfRateLimits
				meta.Error.Data[0] = limits.Rate
				meta.Error.Data[1] = limit
				meta.Error.Data[2] = rate
			}
			return ErrOutOfRateLimits
		}
	}

	if limits.Acceleration > 0.0 {
		limit := (1.0 + clipLimitFactor) * limits.Acceleration
		if math.Abs(acceleration) > limit {
			if meta != nil {
				meta.Error.Index = ErrOutOfAccelerationLimits
				meta.Error.Data[0] = limits.Acceleration
				meta.Error.Data[1] = limit
				meta.Error.Data[2] = acceleration
			}
			return ErrOutOfAccelerationLimits
		}
	}

	if limits.UserCheck != nil {
		return limits.UserCheck(polarity, invert, ref, rate, acceleration)
	}

	return ErrNone
}
