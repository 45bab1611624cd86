package trim

import (
	"math"
	"testing"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

func TestLinearEndpoints(t *testing.T) {
	var pars Pars
	Calc(&Config{Type: Linear, Duration: 4.0, Final: 10.0}, &pars, 0.0, 2.0)

	status, ref := Gen(&pars, 0.0)
	if status != fg.DuringFunc || math.Abs(ref-2.0) > 1e-9 {
		t.Fatalf("start: status=%v ref=%v", status, ref)
	}

	status, ref = Gen(&pars, 4.0-1e-9)
	if math.Abs(ref-10.0) > 1e-6 {
		t.Fatalf("near end: ref=%v want close to 10", ref)
	}
}

func TestLinearMidpoint(t *testing.T) {
	var pars Pars
	Calc(&Config{Type: Linear, Duration: 2.0, Final: 10.0}, &pars, 0.0, 0.0)

	_, ref := Gen(&pars, 1.0)
	if math.Abs(ref-5.0) > 1e-9 {
		t.Fatalf("midpoint: got %v want 5", ref)
	}
}

func TestCubicEndpointsExact(t *testing.T) {
	var pars Pars
	Calc(&Config{Type: Cubic, Duration: 3.0, Final: 20.0}, &pars, 1.0, 4.0)

	_, r0 := Gen(&pars, 1.0)
	if math.Abs(r0-4.0) > 1e-9 {
		t.Fatalf("cubic start: got %v want 4", r0)
	}

	_, r1 := Gen(&pars, 4.0-1e-9)
	if math.Abs(r1-20.0) > 1e-6 {
		t.Fatalf("cubic near end: got %v want close to 20", r1)
	}
}

func TestCubicZeroRateAtEndpoints(t *testing.T) {
	var pars Pars
	Calc(&Config{Type: Cubic, Duration: 2.0, Final: 5.0}, &pars, 0.0, 0.0)

	dt := 1e-4
	_, a := Gen(&pars, dt)
	_, b := Gen(&pars, 2*dt)
	rateNearStart := (b - a) / dt

	if math.Abs(rateNearStart) > 1e-1 {
		t.Fatalf("expected near-zero rate right after start, got %v", rateNearStart)
	}
}

func TestInitRejectsNonPositiveDuration(t *testing.T) {
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, &Config{Duration: 0, Final: 1}, 0, 0, &pars, nil); e != fg.ErrBadParameter {
		t.Fatalf("expected ErrBadParameter, got %v", e)
	}
}

func TestPulseHoldsBeforeDuringAfter(t *testing.T) {
	p := NewPulse(0.0, 5.0, 2.0, 1.0)

	status, ref := p.Gen(0.0)
	if status != fg.BeforeFunc || ref != 0.0 {
		t.Fatalf("before pulse: status=%v ref=%v", status, ref)
	}

	status, ref = p.Gen(2.5)
	if status != fg.DuringFunc || math.Abs(ref-2.5) > 1e-9 {
		t.Fatalf("during pulse: status=%v ref=%v", status, ref)
	}

	status, ref = p.Gen(10.0)
	if status != fg.AfterFunc || ref != 5.0 {
		t.Fatalf("after pulse: status=%v ref=%v", status, ref)
	}
}
