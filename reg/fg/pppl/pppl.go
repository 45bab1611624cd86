// Package pppl implements the PPPL function family: up to eight
// concatenated {parabola, parabola, parabola, linear} quadruples,
// letting a function generator link a series of plateaus with smooth
// accelerations and decelerations.
//
// original_source/libfg only retained pppl.h, not pppl.c, and the
// header's fg_pppl_config only names the three segment accelerations,
// the rate entering the second parabola, and the fourth (linear)
// segment's rate/reference/duration — it does not give the durations of
// the first three segments directly, which in the original library is
// presumably resolved by ccpars at configuration time against
// additional constraints not present in the retrievable source. This
// package resolves them itself: segment 1's duration follows directly
// from reaching rate2 at acceleration1; segments 2 and 3's durations are
// solved numerically (bisection) so that segment 3 ends exactly at
// rate4's value and ref4's position, the two boundary conditions the
// fourth (linear) segment needs to start from. That is a from-
// specification design, not ported code.
package pppl

import (
	"github.com/krystian-wojtas/ccreg/reg/fg"
)

// MaxPppls is the largest number of quadruples a single function may
// concatenate.
const MaxPppls = 8

// SegsPerQuad is the number of segments in one quadruple: P-P-P-L.
const SegsPerQuad = 4

// Quad is one {parabola, parabola, parabola, linear} quadruple.
type Quad struct {
	Acceleration1 float64
	Acceleration2 float64
	Acceleration3 float64
	Rate2         float64
	Rate4         float64
	Ref4          float64
	Duration4     float64
}

// Config is an ordered list of quadruples, evaluated back to back.
type Config struct {
	Quads []Quad
}

type segment struct {
	t0, r0, v0, a float64
	t1            float64
}

// Pars is the fully resolved, ready-to-generate PPPL.
type Pars struct {
	Delay    float64
	segments []segment
}

// Calc lays out every segment of every quadruple in config back to back,
// starting at (delay, initRef, rate 0).
func Calc(config *Config, pars *Pars, delay, initRef float64, meta *fg.Meta) {
	pars.Delay = delay
	pars.segments = pars.segments[:0]

	t, r, v := delay, initRef, 0.0
	lo, hi := initRef, initRef

	for _, q := range config.Quads {
		// Segment 1: accelerate from v to Rate2.
		d1 := 0.0
		if q.Acceleration1 != 0 {
			d1 = (q.Rate2 - v) / q.Acceleration1
		}
		if d1 < 0 {
			d1 = 0
		}
		r1 := r + v*d1 + 0.5*q.Acceleration1*d1*d1
		pars.segments = append(pars.segments, segment{t0: t, r0: r, v0: v, a: q.Acceleration1, t1: t + d1})
		t, r, v = t+d1, r1, q.Rate2

		// Segments 2 and 3: bridge (r, v=Rate2) to (Ref4, Rate4) using
		// Acceleration2 then Acceleration3, solved numerically for the
		// two segment durations.
		d2, d3 := solveBridge(r, v, q.Acceleration2, q.Acceleration3, q.Ref4, q.Rate4)

		r2 := r + v*d2 + 0.5*q.Acceleration2*d2*d2
		v2 := v + q.Acceleration2*d2
		pars.segments = append(pars.segments, segment{t0: t, r0: r, v0: v, a: q.Acceleration2, t1: t + d2})
		t, r, v = t+d2, r2, v2

		r3 := r + v*d3 + 0.5*q.Acceleration3*d3*d3
		pars.segments = append(pars.segments, segment{t0: t, r0: r, v0: v, a: q.Acceleration3, t1: t + d3})
		t, r, v = t+d3, r3, q.Rate4

		// Segment 4: linear run at Rate4 for Duration4.
		pars.segments = append(pars.segments, segment{t0: t, r0: r, v0: q.Rate4, a: 0, t1: t + q.Duration4})
		t, r, v = t+q.Duration4, r+q.Rate4*q.Duration4, q.Rate4

		for _, v := range [...]float64{r, r1, r2, r3} {
			if v > hi {
				hi = v
			}
			if v < lo {
				lo = v
			}
		}
	}

	if meta != nil {
		meta.Duration = t - delay
		meta.Range.Start = initRef
		meta.Range.End = r
		meta.Range.Min = lo
		meta.Range.Max = hi
	}
}

// solveBridge finds (d2, d3) >= 0 such that starting at (r, v) and
// accelerating at a2 for d2 then a3 for d3 lands exactly on (ref4,
// rate4), when such a pair exists (otherwise see the fallback below). The rate condition fixes d3 in terms of d2 (v after segment 2
// plus a3*d3 = rate4); substituting into the position condition gives a
// single-variable function of d2 that bisection resolves, since
// position-to-go decreases monotonically as d2 grows for any physically
// sane (same-sign) acceleration pair.
func solveBridge(r, v, a2, a3, ref4, rate4 float64) (d2, d3 float64) {
	resid := func(d2 float64) float64 {
		v2 := v + a2*d2
		r2 := r + v*d2 + 0.5*a2*d2*d2
		d3 := 0.0
		if a3 != 0 {
			d3 = (rate4 - v2) / a3
		}
		if d3 < 0 {
			d3 = 0
		}
		r3 := r2 + v2*d3 + 0.5*a3*d3*d3
		return r3 - ref4
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 64 && resid(lo)*resid(hi) > 0; i++ {
		hi *= 2
	}

	fLo, fHi := resid(lo), resid(hi)
	if fLo*fHi > 0 {
		// No sign change found in a reasonable range: fall back to a
		// direct one-segment bridge (skip segment 3 entirely).
		d2 = 0.0
		if a2 != 0 {
			d2 = (rate4 - v) / a2
		}
		if d2 < 0 {
			d2 = 0
		}
		return d2, 0.0
	}

	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2.0
		fMid := resid(mid)
		if fMid == 0 {
			lo, hi = mid, mid
			break
		}
		if (fMid > 0) == (fLo > 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}

	d2 = (lo + hi) / 2.0
	v2 := v + a2*d2
	d3 = 0.0
	if a3 != 0 {
		d3 = (rate4 - v2) / a3
	}
	if d3 < 0 {
		d3 = 0
	}
	return d2, d3
}

// Init validates a PPPL request (every quadruple's final ref4, rate4
// against limits) and fills pars ready for Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay, ref float64, pars *Pars, meta *fg.Meta) fg.Error {
	if len(config.Quads) == 0 || len(config.Quads) > MaxPppls {
		return fg.ErrBadArrayLen
	}

	var m fg.Meta
	fg.ResetMeta(&m, ref)

	Calc(config, pars, delay, ref, &m)

	for _, q := range config.Quads {
		if e := fg.CheckRef(limits, polarity, q.Ref4, q.Rate4, 0.0, &m); e != fg.ErrNone {
			if meta != nil {
				*meta = m
			}
			return e
		}
	}

	if meta != nil {
		*meta = m
	}
	return fg.ErrNone
}

// Gen evaluates the PPPL at time, returning its status and value.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	if len(pars.segments) == 0 {
		return fg.AfterFunc, 0
	}

	if time < pars.Delay {
		return fg.BeforeFunc, pars.segments[0].r0
	}

	last := pars.segments[len(pars.segments)-1]
	if time >= last.t1 {
		tt := last.t1 - last.t0
		return fg.AfterFunc, last.r0 + last.v0*tt + 0.5*last.a*tt*tt
	}

	for _, seg := range pars.segments {
		if time < seg.t1 {
			tt := time - seg.t0
			return fg.DuringFunc, seg.r0 + seg.v0*tt + 0.5*seg.a*tt*tt
		}
	}

	return fg.AfterFunc, last.r0
}
