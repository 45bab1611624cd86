package rst

import (
	"math"
	"testing"
)

func TestJuryStableSecondOrder(t *testing.T) {
	// Roots at 0.2 and 0.3: z^2 - 0.5z + 0.06, both inside the unit circle.
	if !StableDescending([]float64{1, -0.5, 0.06}) {
		t.Fatal("expected stable polynomial to pass Jury test")
	}
}

func TestJuryUnstableSecondOrder(t *testing.T) {
	// Roots at 1 and 2: z^2 - 3z + 2, one root on and one outside the circle.
	if StableDescending([]float64{1, -3, 2}) {
		t.Fatal("expected unstable polynomial to fail Jury test")
	}
}

func TestJuryFirstOrder(t *testing.T) {
	if !StableDescending([]float64{1, 0.5}) {
		t.Fatal("expected root at -0.5 to be stable")
	}
	if StableDescending([]float64{1, 1.5}) {
		t.Fatal("expected root at -1.5 to be unstable")
	}
}

func basicDesignInputs() DesignInputs {
	return DesignInputs{
		Tau:              1.0,
		RegPeriod:        0.01,
		AuxPole1Hz:       5.0,
		AuxPole2Hz:       5.0,
		AuxPole2Damping:  1.0,
		AuxPole4Hz:       20.0,
		AuxPole5Hz:       30.0,
		PureDelayPeriods: 1.0,
	}
}

func TestDesignProducesStableController(t *testing.T) {
	p := Design(basicDesignInputs())

	if !p.JuryStable {
		t.Fatalf("expected a stable design for a conservative pole placement, params=%+v", p)
	}
	if p.Status == StatusFault {
		t.Fatalf("expected non-fault status, got %v", p.Status)
	}
	if p.S[0] < 1.0e-10 {
		t.Fatalf("expected S[0] above the stability floor, got %v", p.S[0])
	}
}

func TestDesignUnityDCGain(t *testing.T) {
	p := Design(basicDesignInputs())

	rSum := p.R[0] + p.R[1]
	sSum := p.S[0] + p.S[1]

	if math.Abs(p.T[0]-(rSum+sSum)) > 1e-9 {
		t.Fatalf("T(1) should equal R(1)+S(1): T=%v R+S=%v", p.T[0], rSum+sSum)
	}
}

func TestDesignFlagsNearDeadbeatPoles(t *testing.T) {
	in := basicDesignInputs()
	// Requesting a pole placement far faster than the plant's own
	// bandwidth forces large controller gains and tends to erode the
	// modulus margin even though the desired closed loop is, by
	// construction, still inside the unit circle.
	in.AuxPole1Hz = 400.0
	in.AuxPole2Hz = 400.0

	p := Design(in)
	if p.Status == StatusFault {
		t.Fatalf("did not expect an outright fault for a merely aggressive design, got %+v", p)
	}
}

func TestForwardBackCalcInvariant(t *testing.T) {
	p := Design(basicDesignInputs())
	e := NewEngine(p, basicDesignInputs().RegPeriod, 16)
	e.SeedHistory(0, 0, 0)

	act := e.CalcAct(1.0, 0.2)

	// Pretend a downstream clipper limited this tick's actuation.
	clipped := act * 0.5
	ref := e.BackCalcRef(clipped)
	_ = ref

	// Re-running CalcAct is not idempotent (it advances history), so
	// instead verify consistency by directly re-evaluating the forward
	// formula against the now-corrected histories at the same index.
	pp := e.Active()
	meas := e.meas[e.index]
	sum := pp.T[0]*e.ref[e.index] - pp.R[0]*meas
	n := len(pp.T)
	if len(pp.R) > n {
		n = len(pp.R)
	}
	if len(pp.S) > n {
		n = len(pp.S)
	}
	for i := 1; i < n; i++ {
		if i < len(pp.T) {
			sum += pp.T[i] * e.at(e.ref, i)
		}
		if i < len(pp.R) {
			sum -= pp.R[i] * e.at(e.meas, i)
		}
		if i < len(pp.S) {
			sum -= pp.S[i] * e.at(e.act, i)
		}
	}
	recomputedAct := sum / pp.S[0]

	if math.Abs(recomputedAct-clipped) > 1e-9 {
		t.Fatalf("back-calculated history is inconsistent: forward recompute gives %v, want %v", recomputedAct, clipped)
	}
}

func TestEngineAtomicSwap(t *testing.T) {
	p1 := Design(basicDesignInputs())
	e := NewEngine(p1, 0.01, 16)

	in2 := basicDesignInputs()
	in2.AuxPole1Hz = 2.0
	p2 := Design(in2)

	if e.Active() != p1 {
		t.Fatal("expected initial active params to be p1")
	}

	e.PublishNext(p2)

	if e.Active() != p1 {
		t.Fatal("active params should not change until SwapIfPending is called")
	}

	if !e.SwapIfPending() {
		t.Fatal("expected SwapIfPending to report a swap occurred")
	}
	if e.Active() != p2 {
		t.Fatal("expected active params to be p2 after swap")
	}
	if e.SwapIfPending() {
		t.Fatal("expected second SwapIfPending call to be a no-op")
	}
}

func TestDelayedRefInterpolates(t *testing.T) {
	p := Design(basicDesignInputs())
	p.PureDelayPeriods = 2.0
	e := NewEngine(p, 0.01, 16)
	e.SeedHistory(0, 0, 0)

	for i := 1; i <= 10; i++ {
		e.CalcAct(float64(i), 0)
	}

	// With pure delay of 2 periods and offset 0, delayed ref should
	// equal the ref value from 2 ticks ago.
	got := e.DelayedRef(0)
	want := 8.0 // current ref is 10, 2 ticks back is 8
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("delayed ref: got %v want %v", got, want)
	}
}

func TestTrackDelayDecaysWhenNotClipped(t *testing.T) {
	p := Design(basicDesignInputs())
	e := NewEngine(p, 0.01, 16)

	for i := 0; i < 50; i++ {
		e.UpdateTrackDelay(true, 0.2)
	}
	afterClipping := e.TrackDelayPeriods()
	if afterClipping <= 0.0 {
		t.Fatalf("expected positive track delay estimate after sustained clipping, got %v", afterClipping)
	}

	for i := 0; i < 50; i++ {
		e.UpdateTrackDelay(false, 0.2)
	}
	afterRecovery := e.TrackDelayPeriods()
	if afterRecovery >= afterClipping {
		t.Fatalf("expected track delay estimate to decay once clipping stops: before=%v after=%v", afterClipping, afterRecovery)
	}
}

func TestModulusMarginWithinUnitRange(t *testing.T) {
	p := Design(basicDesignInputs())
	if p.ModulusMargin < 0.0 {
		t.Fatalf("modulus margin should never be negative, got %v", p.ModulusMargin)
	}
}
