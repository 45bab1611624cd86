package lim

import "testing"

func TestMeasLimitsTrip(t *testing.T) {
	m := NewMeasLimits(100.0, -100.0, 0, 0, false)

	if f := m.Check(50.0); f.Trip {
		t.Fatalf("unexpected trip at 50: %+v", f)
	}

	if f := m.Check(102.0); !f.Trip {
		t.Fatalf("expected trip above pos limit with margin, got %+v", f)
	}

	if f := m.Check(-102.0); !f.Trip {
		t.Fatalf("expected trip below neg limit with margin, got %+v", f)
	}
}

func TestMeasLimitsLowHysteresis(t *testing.T) {
	m := NewMeasLimits(100.0, -100.0, 10.0, 0, false)

	f := m.Check(5.0)
	if !f.Low {
		t.Fatalf("expected low flag below threshold, got %+v", f)
	}

	// Within the hysteresis band the flag should stick.
	f = m.Check(9.9)
	if !f.Low {
		t.Fatalf("expected low flag to stick inside hysteresis band, got %+v", f)
	}

	// Clearly above the raw threshold it should clear.
	f = m.Check(11.0)
	if f.Low {
		t.Fatalf("expected low flag to clear above threshold, got %+v", f)
	}
}

func TestMeasLimitsInvert(t *testing.T) {
	m := NewMeasLimits(100.0, 0, 0, 0, true)

	// Inverted: a positive measurement should be interpreted as negative,
	// and since negTrip is 0 (disabled), nothing should trip.
	if f := m.Check(50.0); f.Trip {
		t.Fatalf("unexpected trip with invert and no neg limit: %+v", f)
	}
}

func TestRmsWarningAndFault(t *testing.T) {
	r := NewRms(10.0, 20.0, 1.0, 0.1)

	var flags RmsFlags
	for i := 0; i < 200; i++ {
		flags = r.Check(15.0)
	}

	if !flags.Warning {
		t.Fatalf("expected warning to latch after settling above threshold, got %+v", flags)
	}
	if flags.Fault {
		t.Fatalf("did not expect fault below fault threshold, got %+v", flags)
	}

	for i := 0; i < 200; i++ {
		flags = r.Check(25.0)
	}

	if !flags.Fault {
		t.Fatalf("expected fault after settling above fault threshold, got %+v", flags)
	}
}

func TestRmsDisabled(t *testing.T) {
	r := NewRms(10.0, 20.0, 0, 0.1)

	flags := r.Check(1000.0)
	if flags.Warning || flags.Fault {
		t.Fatalf("expected disabled RMS trip (tc<=0) to never flag, got %+v", flags)
	}
}

func TestRefClipAbsolute(t *testing.T) {
	r := NewRef(100.0, 0, -100.0, 1.0e6, 0, 0)

	got := r.Clip(0.001, 150.0, 0.0)
	if got != r.MaxClip {
		t.Fatalf("expected clip to MaxClip=%v, got %v", r.MaxClip, got)
	}
	if !r.Flags().Clip {
		t.Fatal("expected Clip flag set")
	}

	got = r.Clip(0.001, -150.0, 0.0)
	if got != r.MinClip {
		t.Fatalf("expected clip to MinClip=%v, got %v", r.MinClip, got)
	}
}

func TestRefClipRate(t *testing.T) {
	r := NewRef(1000.0, 0, -1000.0, 10.0, 0, 0)

	period := 0.001
	prev := 0.0
	// Requested jump is far larger than rate*period allows.
	got := r.Clip(period, 100.0, prev)

	maxStep := r.RateClip * period
	if got > prev+maxStep+1e-9 {
		t.Fatalf("rate clip failed to bound step: got %v, max allowed %v", got, prev+maxStep)
	}
	if !r.Flags().Rate {
		t.Fatal("expected Rate flag set")
	}
}

func TestRefClipRateFP32MarginAvoidsFalsePositive(t *testing.T) {
	// A tiny, consistent ramp at exactly the rate limit should never
	// falsely trip the rate clip due to floating point rounding.
	r := NewRef(1.0, 0, -1.0, 1000.0, 0, 0)

	period := 1.0e-6
	step := r.Rate * period

	prev := 0.0
	for i := 0; i < 1000; i++ {
		next := prev + step
		got := r.Clip(period, next, prev)
		if r.Flags().Rate {
			t.Fatalf("iteration %d: unexpected false-positive rate clip at exact rate limit", i)
		}
		prev = got
	}
}

func TestRefUnipolarMinClipIsZero(t *testing.T) {
	r := NewRef(100.0, 0, 0, 1.0e6, 0, 0)

	if !r.Unipolar {
		t.Fatal("expected unipolar when neg==0")
	}
	if r.MinClip != 0.0 {
		t.Fatalf("expected MinClip=0 for unipolar, got %v", r.MinClip)
	}

	got := r.Clip(0.001, -10.0, 0.0)
	if got != 0.0 {
		t.Fatalf("expected unipolar clip to 0, got %v", got)
	}
}

func TestVoltageRefQ41EnvelopeNarrowsAtHighCurrent(t *testing.T) {
	r := NewVoltageRef(500.0, -500.0, 1.0e6, 0,
		[2]float64{0.0, 100.0}, [2]float64{50.0, 10.0})

	r.RecalcVoltageEnvelope(0.0)
	lowCurrentMax := r.MaxClip

	r.RecalcVoltageEnvelope(80.0)
	highCurrentMax := r.MaxClip

	if highCurrentMax >= lowCurrentMax {
		t.Fatalf("expected envelope to narrow at high current: low=%v high=%v", lowCurrentMax, highCurrentMax)
	}

	// Beyond the zone's current range the envelope reverts to the user box.
	r.RecalcVoltageEnvelope(1000.0)
	if r.MaxClip != r.maxClipUser {
		t.Fatalf("expected full user MaxClip beyond Q41 zone, got %v want %v", r.MaxClip, r.maxClipUser)
	}
}

func TestVoltageRefQ41IgnoredWhenZoneTooNarrow(t *testing.T) {
	r := NewVoltageRef(500.0, -500.0, 1.0e6, 0,
		[2]float64{0.0, 0.5}, [2]float64{50.0, 49.0})

	if r.iQuadrants41Max != -1.0e10 {
		t.Fatalf("expected Q41 zone to be disabled for <1A spread, got iQuadrants41Max=%v", r.iQuadrants41Max)
	}

	r.RecalcVoltageEnvelope(0.25)
	if r.MaxClip != r.maxClipUser {
		t.Fatalf("expected plain user MaxClip with disabled Q41 zone, got %v", r.MaxClip)
	}
}
