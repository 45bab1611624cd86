package sim

import (
	"math"
	"testing"
)

func TestInitVsTustinSettlesToUnityGain(t *testing.T) {
	period := 1e-3
	var pars VsPars
	if err := InitVs(&VsConfig{BandwidthHz: 50.0, Damping: 0.9}, period, &pars); err != nil {
		t.Fatalf("InitVs: %v", err)
	}

	var vars VsVars
	var y float64
	for i := 0; i < 20000; i++ {
		y = Transform(&pars, &vars, 10.0)
	}

	if math.Abs(y-10.0) > 1e-2 {
		t.Fatalf("expected settled output near 10, got %v", y)
	}
}

func TestInitVsRejectsBandwidthAboveNyquistWithoutFallback(t *testing.T) {
	var pars VsPars
	err := InitVs(&VsConfig{BandwidthHz: 1.0e6, Damping: 0.7}, 1e-3, &pars)
	if err == nil {
		t.Fatalf("expected an error for a bandwidth far above Nyquist with no fallback coefficients")
	}
}

func TestInitVsFallsBackToProvidedCoefficients(t *testing.T) {
	var pars VsPars
	cfg := &VsConfig{
		BandwidthHz: 1.0e6,
		Damping:     0.7,
		Num:         []float64{1.0},
		Den:         []float64{1.0},
	}
	if err := InitVs(cfg, 1e-3, &pars); err != nil {
		t.Fatalf("InitVs: %v", err)
	}

	var vars VsVars
	y := Transform(&pars, &vars, 7.0)
	if y != 7.0 {
		t.Fatalf("expected unity passthrough fallback, got %v", y)
	}
}

func TestInitVsDirectCoefficients(t *testing.T) {
	var pars VsPars
	cfg := &VsConfig{Num: []float64{0.5, 0.5}, Den: []float64{1.0, 0.0}}
	if err := InitVs(cfg, 1e-3, &pars); err != nil {
		t.Fatalf("InitVs: %v", err)
	}

	var vars VsVars
	y1 := Transform(&pars, &vars, 2.0)
	if math.Abs(y1-1.0) > 1e-9 {
		t.Fatalf("first sample: got %v want 1 (0.5*2 + 0.5*0)", y1)
	}
}

func TestInitVsUndersampledFlagForFastBandwidth(t *testing.T) {
	period := 1e-3
	var pars VsPars
	if err := InitVs(&VsConfig{BandwidthHz: 5000.0, Damping: 1.0}, period, &pars); err != nil {
		t.Fatalf("InitVs: %v", err)
	}
	if !pars.Undersampled {
		t.Fatalf("expected undersampled flag for a bandwidth much faster than the tick rate")
	}
}

func TestInitVsNotUndersampledForSlowBandwidth(t *testing.T) {
	period := 1e-3
	var pars VsPars
	if err := InitVs(&VsConfig{BandwidthHz: 1.0, Damping: 1.0}, period, &pars); err != nil {
		t.Fatalf("InitVs: %v", err)
	}
	if pars.Undersampled {
		t.Fatalf("did not expect undersampled flag for a bandwidth slow relative to the tick rate")
	}
}

func TestInitVsRejectsMismatchedCoefficientLengths(t *testing.T) {
	var pars VsPars
	cfg := &VsConfig{Num: []float64{1.0}, Den: []float64{1.0, 0.5}}
	if err := InitVs(cfg, 1e-3, &pars); err == nil {
		t.Fatalf("expected an error for mismatched Num/Den lengths")
	}
}
