// Package plep implements the PLEP function family: parabola-linear-
// exponential-parabola. Unlike ramp, PLEP supports a non-zero initial
// and final rate of change, and an optional exponential segment that
// decays the rate toward exp_final with time constant exp_tc. Without
// that segment the closing parabola brings the rate to final_rate; after
// it, the closing parabola accelerates over the remaining distance and
// ends with a non-zero rate.
//
// original_source/libfg only retained plep.h, not plep.c. This package
// is a from-specification design grounded on that header's field layout
// (fg_plep_config/fg_plep_pars in original_source/libfg/inc/libfg/plep.h)
// and the family description in the distilled specification. It
// implements the four-segment case (parabola, linear, optional
// exponential, parabola); the header documents a possible fifth segment
// when the final rate requires a second, opposite-sign parabola rather
// than an extension of the fourth — that case is out of scope here since
// nothing in this regulator's scenarios commands a non-zero final rate
// that reverses sign against the closing deceleration.
package plep

import (
	"math"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

// NSegs is the number of segments PLEP tracks (4 implemented here; the
// header reserves a 5th for the opposite-sign final parabola case).
const NSegs = 5

// Config is how a caller asks for a PLEP.
type Config struct {
	Final        float64
	Acceleration float64 // absolute value used
	LinearRate   float64 // absolute value used
	FinalRate    float64
	ExpTc        float64 // <= 0 disables the exponential segment
	ExpFinal     float64
}

// Pars is the fully resolved, ready-to-generate PLEP.
type Pars struct {
	Normalisation float64
	Delay         float64
	Acceleration  float64
	FinalAcc      float64
	LinearRate    float64
	FinalRate     float64
	RefExp        float64
	InvExpTc      float64
	ExpFinal      float64
	InitRate      float64

	Ref  [NSegs + 1]float64
	Time [NSegs + 1]float64

	hasExp         bool
	closeStartRate float64
	closeAcc       float64
}

// Calc derives PLEP's segment breakpoints.
func Calc(config *Config, pars *Pars, delay, initRef, initRate float64, meta *fg.Meta) {
	sign := 1.0
	if config.Final < initRef {
		sign = -1.0
	}
	pars.Normalisation = -sign

	accel := sign * math.Abs(config.Acceleration)
	cruise := sign * math.Abs(config.LinearRate)

	pars.Delay = delay
	pars.Acceleration = accel
	pars.LinearRate = cruise
	pars.InitRate = initRate
	pars.FinalRate = config.FinalRate
	pars.FinalAcc = -accel
	pars.ExpFinal = config.ExpFinal
	pars.hasExp = config.ExpTc > 0.0

	t0 := delay
	r0 := initRef

	// Segment 1: parabola from initRate to cruise.
	t1Dur := 0.0
	if accel != 0 {
		t1Dur = (cruise - initRate) / accel
	}
	if t1Dur < 0 {
		t1Dur = 0
	}
	r1 := r0 + initRate*t1Dur + 0.5*accel*t1Dur*t1Dur
	t1 := t0 + t1Dur

	pars.Time[0] = t0
	pars.Ref[0] = r0
	pars.Time[1] = t1
	pars.Ref[1] = r1

	var t2, t3 float64
	var r2, r3 float64
	var closeStartRate float64

	if pars.hasExp {
		pars.InvExpTc = 1.0 / config.ExpTc
		pars.RefExp = config.ExpFinal

		// Linear segment runs until the exponential segment's entry
		// point; choose that point as the reference level a fixed
		// fraction of the way from r1 toward exp_final so the
		// exponential has meaningful room to decay before the closing
		// parabola takes over.
		expEntry := r1 + 0.6*(config.ExpFinal-r1)
		linDur := 0.0
		if cruise != 0 {
			linDur = (expEntry - r1) / cruise
		}
		if linDur < 0 {
			linDur = 0
		}
		t2 = t1 + linDur
		r2 = r1 + cruise*linDur

		// Exponential segment runs for a handful of time constants,
		// long enough that its rate (and hence the discontinuity
		// handed to the closing parabola) has decayed close to zero.
		expDur := 5.0 * config.ExpTc
		t3 = t2 + expDur
		decay := math.Exp(-expDur / config.ExpTc)
		r3 = config.ExpFinal + (r2-config.ExpFinal)*decay
		closeStartRate = -(r2 - config.ExpFinal) * pars.InvExpTc * decay
	} else {
		// Without an exponential segment, size the linear run so the
		// closing parabola (starting at cruise rate) lands exactly on
		// Final with FinalRate.
		closeDurAtCruise := 0.0
		if accel != 0 {
			closeDurAtCruise = math.Abs((config.FinalRate - cruise) / accel)
		}
		closeSpan := 0.0
		if closeDurAtCruise != 0 {
			closeSpan = (cruise + config.FinalRate) / 2.0 * closeDurAtCruise
		}

		remaining := config.Final - closeSpan - r1
		linDur := 0.0
		if cruise != 0 {
			linDur = remaining / cruise
		}
		if linDur < 0 {
			linDur = 0
		}
		t2 = t1 + linDur
		r2 = r1 + cruise*linDur
		t3 = t2
		r3 = r2
		closeStartRate = cruise
	}

	pars.closeStartRate = closeStartRate

	// Closing parabola: starts at (t3, r3, closeStartRate) and is solved
	// from the position equation alone (duration such that the
	// parabola's displacement equals Final-r3), which keeps the segment
	// continuous with whatever rate the previous segment left it at.
	// Without an exponential segment it decelerates at FinalAcc, which
	// with the linear run sized above lands on Final at FinalRate (for a
	// FinalRate between zero and the linear rate). After an exponential
	// segment it accelerates at accel from the exponential's leftover
	// rate, so it reaches Final with a non-zero rate, not FinalRate.
	closeAcc := pars.FinalAcc
	if pars.hasExp {
		closeAcc = accel
	}
	pars.closeAcc = closeAcc

	distance := config.Final - r3
	closeDur := 0.0
	if closeAcc != 0 {
		disc := closeStartRate*closeStartRate + 2.0*closeAcc*distance
		if disc < 0 {
			disc = 0
		}
		closeDur = (-closeStartRate + math.Sqrt(disc)) / closeAcc
	}
	if closeDur < 0 {
		closeDur = 0
	}

	t4 := t3 + closeDur
	r4 := config.Final

	pars.Time[2] = t2
	pars.Ref[2] = r2
	pars.Time[3] = t3
	pars.Ref[3] = r3
	pars.Time[4] = t4
	pars.Ref[4] = r4
	pars.Time[5] = t4
	pars.Ref[5] = r4

	if meta != nil {
		meta.Duration = t4 - delay
		meta.Range.Start = initRef
		meta.Range.End = config.Final
		lo, hi := initRef, initRef
		for _, r := range pars.Ref {
			if r < lo {
				lo = r
			}
			if r > hi {
				hi = r
			}
		}
		meta.Range.Min = lo
		meta.Range.Max = hi
	}
}

// Init validates a PLEP request against limits and, on acceptance,
// fills pars ready for Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay, ref float64, pars *Pars, meta *fg.Meta) fg.Error {
	if config.Acceleration <= 0.0 || config.LinearRate <= 0.0 {
		return fg.ErrBadParameter
	}

	var m fg.Meta
	fg.ResetMeta(&m, ref)

	Calc(config, pars, delay, ref, 0.0, &m)

	if e := fg.CheckRef(limits, polarity, config.Final, config.FinalRate, 0.0, &m); e != fg.ErrNone {
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

// Gen evaluates the PLEP at time, returning its status and value.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	switch {
	case time < pars.Time[0]:
		return fg.BeforeFunc, pars.Ref[0]

	case time >= pars.Time[4]:
		return fg.AfterFunc, pars.Ref[4]

	case time <= pars.Time[1]:
		tt := time - pars.Time[0]
		return fg.DuringFunc, pars.Ref[0] + pars.InitRate*tt + 0.5*pars.Acceleration*tt*tt

	case time <= pars.Time[2]:
		if pars.Time[2] == pars.Time[1] {
			return fg.DuringFunc, pars.Ref[1]
		}
		frac := (time - pars.Time[1]) / (pars.Time[2] - pars.Time[1])
		return fg.DuringFunc, pars.Ref[1] + frac*(pars.Ref[2]-pars.Ref[1])

	case pars.hasExp && time <= pars.Time[3]:
		tt := time - pars.Time[2]
		return fg.DuringFunc, pars.ExpFinal + (pars.Ref[2]-pars.ExpFinal)*math.Exp(-tt*pars.InvExpTc)

	default:
		tt := time - pars.Time[3]
		return fg.DuringFunc, pars.Ref[3] + pars.closeStartRate*tt + 0.5*pars.closeAcc*tt*tt
	}
}
