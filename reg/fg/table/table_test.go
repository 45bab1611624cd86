package table

import (
	"math"
	"testing"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

func basicConfig() *Config {
	return &Config{
		Time: []float64{0, 1, 2, 4},
		Ref:  []float64{0, 10, 10, 2},
	}
}

func TestInitRejectsMismatchedLengths(t *testing.T) {
	cfg := &Config{Time: []float64{0, 1}, Ref: []float64{0}}
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil); e != fg.ErrBadArrayLen {
		t.Fatalf("expected ErrBadArrayLen, got %v", e)
	}
}

func TestInitRejectsNonIncreasingTime(t *testing.T) {
	cfg := &Config{Time: []float64{0, 1, 1}, Ref: []float64{0, 1, 2}}
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil); e != fg.ErrInvalidTime {
		t.Fatalf("expected ErrInvalidTime, got %v", e)
	}
}

func TestGenInterpolatesLinearly(t *testing.T) {
	cfg := basicConfig()
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil); e != fg.ErrNone {
		t.Fatalf("unexpected init error: %v", e)
	}

	status, ref := Gen(&pars, 0.5)
	if status != fg.DuringFunc || math.Abs(ref-5.0) > 1e-9 {
		t.Fatalf("midpoint of first segment: got status=%v ref=%v", status, ref)
	}
}

func TestGenHoldsPlateauSegment(t *testing.T) {
	cfg := basicConfig()
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	_, ref := Gen(&pars, 1.5)
	if math.Abs(ref-10.0) > 1e-9 {
		t.Fatalf("expected plateau value 10, got %v", ref)
	}
}

func TestGenBeforeAndAfter(t *testing.T) {
	cfg := basicConfig()
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 1.0, &pars, nil)

	status, ref := Gen(&pars, 0.0)
	if status != fg.BeforeFunc || ref != 0.0 {
		t.Fatalf("before start: status=%v ref=%v", status, ref)
	}

	status, ref = Gen(&pars, 100.0)
	if status != fg.AfterFunc || ref != 2.0 {
		t.Fatalf("after end: status=%v ref=%v", status, ref)
	}
}

func TestGenMonotonicSegmentCaching(t *testing.T) {
	cfg := basicConfig()
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	prevIdx := -1
	for tt := 0.0; tt <= 4.0; tt += 0.1 {
		Gen(&pars, tt)
		if pars.segIdx < prevIdx {
			t.Fatalf("segment index should never go backwards scanning forward in time: %d -> %d", prevIdx, pars.segIdx)
		}
		prevIdx = pars.segIdx
	}
}

func TestDirectRearmsOnNewTarget(t *testing.T) {
	d := NewDirect(2.0)

	d.SetTarget(0.0, 0.0, 10.0)
	_, mid := d.Gen(d.pars.Time[1])
	if mid <= 0.0 || mid >= 10.0 {
		t.Fatalf("expected an in-progress ramp value, got %v", mid)
	}

	// Pushing the same target again should not restart the ramp.
	prevTimeShift := d.pars.TimeShift
	d.SetTarget(d.pars.Time[1], mid, 10.0)
	if d.pars.TimeShift != prevTimeShift {
		t.Fatal("setting the same target should not re-arm the ramp")
	}

	// A genuinely new target re-arms from the current position.
	d.SetTarget(d.pars.Time[1], mid, -5.0)
	_, ref := d.Gen(d.pars.Time[0])
	if math.Abs(ref-mid) > 1e-6 {
		t.Fatalf("re-armed ramp should start from the current position %v, got %v", mid, ref)
	}
}
