package ramp

import (
	"math"
	"testing"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

func TestCalcSymmetricDuration(t *testing.T) {
	cfg := &Config{Final: 10.0, Acceleration: 2.0}
	var pars Pars
	var meta fg.Meta

	Calc(cfg, &pars, 0.0, 0.0, &meta)

	// delta=10, accel=2 -> tHalf = sqrt(10/2) = sqrt(5)
	wantHalf := math.Sqrt(5.0)
	if math.Abs(pars.Time[1]-wantHalf) > 1e-9 {
		t.Fatalf("midpoint time: got %v want %v", pars.Time[1], wantHalf)
	}
	if math.Abs(meta.Duration-2.0*wantHalf) > 1e-9 {
		t.Fatalf("duration: got %v want %v", meta.Duration, 2.0*wantHalf)
	}
}

func TestGenStartsAndEndsAtRest(t *testing.T) {
	cfg := &Config{Final: 5.0, Acceleration: 1.0}
	var pars Pars
	Calc(cfg, &pars, 1.0, 0.0, nil)

	status, ref := Gen(&pars, 0.0)
	if status != fg.BeforeFunc || ref != 0.0 {
		t.Fatalf("before start: got status=%v ref=%v", status, ref)
	}

	status, ref = Gen(&pars, pars.Time[2]+10)
	if status != fg.AfterFunc || math.Abs(ref-5.0) > 1e-9 {
		t.Fatalf("after end: got status=%v ref=%v", status, ref)
	}
}

func TestGenMidpointRateIsPeak(t *testing.T) {
	cfg := &Config{Final: 8.0, Acceleration: 2.0}
	var pars Pars
	Calc(cfg, &pars, 0.0, 0.0, nil)

	// Just after the midpoint, rate should still be close to accel*tHalf,
	// the peak of the triangular velocity profile.
	dt := 1e-4
	_, r1 := Gen(&pars, pars.Time[1]-dt)
	_, r2 := Gen(&pars, pars.Time[1]+dt)

	rate := (r2 - r1) / (2 * dt)
	peak := pars.Acceleration * (pars.Time[1] - pars.Time[0])

	if math.Abs(rate-peak) > 1e-2 {
		t.Fatalf("rate near midpoint: got %v want ~%v", rate, peak)
	}
}

func TestGenMonotonicForPositiveRamp(t *testing.T) {
	cfg := &Config{Final: 4.0, Acceleration: 1.0}
	var pars Pars
	Calc(cfg, &pars, 0.0, 0.0, nil)

	prev := math.Inf(-1)
	for tt := 0.0; tt <= pars.Time[2]+0.5; tt += 0.05 {
		_, ref := Gen(&pars, tt)
		if ref < prev-1e-12 {
			t.Fatalf("ramp not monotonic at t=%v: ref=%v prev=%v", tt, ref, prev)
		}
		prev = ref
	}
}

func TestInitRejectsNonPositiveAcceleration(t *testing.T) {
	cfg := &Config{Final: 1.0, Acceleration: 0.0}
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, cfg, 0, 0, &pars, nil); e != fg.ErrBadParameter {
		t.Fatalf("expected ErrBadParameter, got %v", e)
	}
}

func TestInitRejectsFinalOutsideLimits(t *testing.T) {
	cfg := &Config{Final: 100.0, Acceleration: 1.0}
	limits := &fg.Limits{Pos: 10.0, Min: 0.0}
	var pars Pars
	if e := Init(limits, fg.PolarityNormal, cfg, 0, 0, &pars, nil); e != fg.ErrOutOfLimits {
		t.Fatalf("expected ErrOutOfLimits, got %v", e)
	}
}

func TestSetReturnedRefRetimesDecelSegment(t *testing.T) {
	cfg := &Config{Final: 10.0, Acceleration: 2.0}
	var pars Pars
	Calc(cfg, &pars, 0.0, 0.0, nil)

	// Drive through the accelerating segment normally.
	mid := pars.Time[1]
	_, ref := Gen(&pars, mid*0.5)
	pars.SetReturnedRef(ref)

	// Simulate an external rate clip holding the ramp below its ideal
	// curve right as it crosses into deceleration.
	_, idealAtMid := Gen(&pars, mid)
	clippedRef := idealAtMid - 0.5
	pars.SetReturnedRef(clippedRef)

	status, next := Gen(&pars, mid+0.01)
	if status != fg.DuringFunc {
		t.Fatalf("expected still during function, got %v", status)
	}
	if next < clippedRef-1e-9 {
		t.Fatalf("retimed decel segment should continue climbing from the clipped point, got %v < %v", next, clippedRef)
	}

	// And it should still reach the final value eventually.
	_, final := Gen(&pars, pars.Time[2]+100)
	if math.Abs(final-cfg.Final) > 1e-9 {
		t.Fatalf("expected eventual convergence to final ref, got %v", final)
	}
}
