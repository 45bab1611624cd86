package load

import (
	"math"
	"testing"
)

func TestElectricalTauResistiveOnly(t *testing.T) {
	// Pure series resistor, no parallel branch: tau = L/R.
	e := NewElectrical(1.0, 0.0, 0.0, 1.0)

	want := 1.0
	if math.Abs(e.Tau-want) > 1e-9 {
		t.Fatalf("tau = %v, want %v", e.Tau, want)
	}
}

func TestElectricalStepResponseSettles(t *testing.T) {
	e := NewElectrical(1.0, 0.0, 0.0, 1.0)

	i := 0.0
	const dt = 0.001
	for n := 0; n < 20000; n++ {
		i = e.StepResponse(1.0, i, dt)
	}

	// After many time constants at a 1V step across a 1 ohm resistor,
	// current should settle to 1A.
	if math.Abs(i-1.0) > 1e-3 {
		t.Fatalf("settled current = %v, want ~1.0", i)
	}
}

func TestSaturationFieldMonotonicAndContinuous(t *testing.T) {
	s := NewSaturation(10.0, 0.2, 50.0, 100.0)

	prev := s.Field(0.0)
	for i := 1.0; i <= 200.0; i++ {
		f := s.Field(i)
		if f < prev {
			t.Fatalf("field map not monotonic at i=%v: %v < %v", i, f, prev)
		}
		prev = f
	}

	// Continuity at the two region boundaries.
	epsilon := 1e-6
	if math.Abs(s.Field(50.0-epsilon)-s.Field(50.0+epsilon)) > 1e-2 {
		t.Fatalf("discontinuity at iSatStart boundary")
	}
	if math.Abs(s.Field(100.0-epsilon)-s.Field(100.0+epsilon)) > 1e-2 {
		t.Fatalf("discontinuity at iSatEnd boundary")
	}
}

func TestSaturationFieldSymmetric(t *testing.T) {
	s := NewSaturation(10.0, 0.2, 50.0, 100.0)

	for _, i := range []float64{10.0, 50.0, 75.0, 150.0} {
		pos := s.Field(i)
		neg := s.Field(-i)
		if math.Abs(pos+neg) > 1e-9 {
			t.Fatalf("field map not odd-symmetric at i=%v: f(i)=%v f(-i)=%v", i, pos, neg)
		}
	}
}

func TestSatFactorDecreasesWithSaturation(t *testing.T) {
	s := NewSaturation(10.0, 0.2, 50.0, 100.0)

	low := s.SatFactor(10.0)
	mid := s.SatFactor(75.0)
	high := s.SatFactor(150.0)

	if !(low > mid && mid > high) {
		t.Fatalf("expected decreasing sat factor with current: low=%v mid=%v high=%v", low, mid, high)
	}
	if math.Abs(low-1.0) > 1e-9 {
		t.Fatalf("expected unsaturated region sat factor of 1.0, got %v", low)
	}
	if math.Abs(high-0.2) > 1e-9 {
		t.Fatalf("expected fully saturated sat factor of lSat=0.2, got %v", high)
	}
}

func TestVrefSatRoundTrip(t *testing.T) {
	s := NewSaturation(10.0, 0.2, 50.0, 100.0)

	const ohms = 2.0
	for _, i := range []float64{0.0, 10.0, 49.9, 75.0, 100.1, 150.0} {
		for _, v := range []float64{0.0, 1.0, -5.0, 42.0} {
			compensated := s.VrefSat(i, v, ohms)
			back := s.InverseVrefSat(i, compensated, ohms)

			if math.Abs(v) < 1e-9 {
				if math.Abs(back) > 1e-6 {
					t.Fatalf("round trip failed near zero: i=%v v=%v got %v", i, v, back)
				}
				continue
			}

			relErr := math.Abs(back-v) / math.Abs(v)
			if relErr > 1e-6 {
				t.Fatalf("round trip failed: i=%v v=%v got %v relErr=%v", i, v, back, relErr)
			}
		}
	}
}

func TestAmpsGaussConversionExact(t *testing.T) {
	s := NewSaturation(5.5, 0.3, 10.0, 20.0)

	amps := 3.0
	gauss := s.AmpsToGauss(amps)

	if gauss != amps*5.5 {
		t.Fatalf("AmpsToGauss not exact multiplier: got %v", gauss)
	}

	back := s.GaussToAmps(gauss)
	if math.Abs(back-amps) > 1e-12 {
		t.Fatalf("GaussToAmps round trip failed: got %v want %v", back, amps)
	}
}
