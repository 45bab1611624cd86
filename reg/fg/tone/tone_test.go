package tone

import (
	"math"
	"testing"

	"github.com/krystian-wojtas/ccreg/reg/fg"
)

func TestInitRejectsBadPeriodOrCycles(t *testing.T) {
	var pars Pars
	if e := Init(nil, fg.PolarityNormal, &Config{Period: 0, NumCycles: 1}, 0, &pars, nil); e != fg.ErrBadParameter {
		t.Fatalf("expected ErrBadParameter for zero period, got %v", e)
	}
	if e := Init(nil, fg.PolarityNormal, &Config{Period: 1, NumCycles: 0}, 0, &pars, nil); e != fg.ErrBadParameter {
		t.Fatalf("expected ErrBadParameter for zero cycles, got %v", e)
	}
}

func TestInitRejectsAmplitudeOutsideLimits(t *testing.T) {
	cfg := &Config{Period: 1.0, PeakToPeak: 100.0, NumCycles: 2, BaselineRef: 0}
	limits := &fg.Limits{Pos: 5.0, Min: 0.0}
	var pars Pars
	if e := Init(limits, fg.PolarityNormal, cfg, 0, &pars, nil); e != fg.ErrOutOfLimits {
		t.Fatalf("expected ErrOutOfLimits, got %v", e)
	}
}

func TestSineReachesPeakAtQuarterPeriod(t *testing.T) {
	cfg := &Config{Kind: Sine, Period: 4.0, PeakToPeak: 10.0, NumCycles: 1}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	_, ref := Gen(&pars, 1.0)
	if math.Abs(ref-5.0) > 1e-9 {
		t.Fatalf("sine at quarter period: got %v want 5", ref)
	}
}

func TestCosineStartsAtPeak(t *testing.T) {
	cfg := &Config{Kind: Cosine, Period: 2.0, PeakToPeak: 4.0, NumCycles: 1}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	_, ref := Gen(&pars, 0.0)
	if math.Abs(ref-2.0) > 1e-9 {
		t.Fatalf("cosine at t=0: got %v want 2", ref)
	}
}

func TestSquareTogglesSign(t *testing.T) {
	cfg := &Config{Kind: Square, Period: 2.0, PeakToPeak: 2.0, NumCycles: 1}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	_, first := Gen(&pars, 0.2)
	_, second := Gen(&pars, 1.2)
	if first*second >= 0 {
		t.Fatalf("expected opposite signs across half a period: %v, %v", first, second)
	}
}

func TestStepsStaysWithinAmplitude(t *testing.T) {
	cfg := &Config{Kind: Steps, Period: 4.0, PeakToPeak: 6.0, NumCycles: 3}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	for tt := 0.0; tt < pars.Duration; tt += 0.1 {
		_, ref := Gen(&pars, tt)
		if math.Abs(ref) > 3.0+1e-9 {
			t.Fatalf("steps value %v exceeds peak amplitude at t=%v", ref, tt)
		}
	}
}

func TestHannWindowTapersEnds(t *testing.T) {
	cfg := &Config{Kind: Sine, Period: 1.0, PeakToPeak: 10.0, NumCycles: 5, Hann: true}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 0, &pars, nil)

	_, nearStart := Gen(&pars, 0.01)
	// Offset from dead-center by a quarter period so the sine itself
	// isn't incidentally zero there too.
	_, middle := Gen(&pars, pars.Duration/2+pars.Period/4)

	if math.Abs(nearStart) >= math.Abs(middle) {
		t.Fatalf("Hann-windowed tone should start near zero amplitude: nearStart=%v middle=%v", nearStart, middle)
	}
}

func TestGenBeforeAndAfterHoldBaseline(t *testing.T) {
	cfg := &Config{Kind: Sine, Period: 1.0, PeakToPeak: 2.0, NumCycles: 2, BaselineRef: 7.0}
	var pars Pars
	Init(nil, fg.PolarityNormal, cfg, 1.0, &pars, nil)

	status, ref := Gen(&pars, 0.0)
	if status != fg.BeforeFunc || ref != 7.0 {
		t.Fatalf("before start: status=%v ref=%v", status, ref)
	}

	status, ref = Gen(&pars, 100.0)
	if status != fg.AfterFunc || ref != 7.0 {
		t.Fatalf("after end: status=%v ref=%v", status, ref)
	}
}
