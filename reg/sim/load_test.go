package sim

import (
	"math"
	"testing"

	"github.com/krystian-wojtas/ccreg/reg/load"
)

func testLoadPars() *LoadPars {
	return &LoadPars{
		Electrical: load.NewElectrical(0.1, 1000.0, 0.05, 0.5),
		Saturation: load.NewSaturation(200.0, 0.3, 400.0, 600.0),
	}
}

func TestStepVoltageActuatedConvergesToOhmicLimit(t *testing.T) {
	pars := testLoadPars()
	var vars LoadVars

	for i := 0; i < 200000; i++ {
		StepVoltageActuated(pars, &vars, false, 10.0, 1e-3)
	}

	want := 10.0 * pars.Electrical.Gain0
	if math.Abs(vars.CircuitCurrent-want) > 1e-2 {
		t.Fatalf("expected current to settle near %v, got %v", want, vars.CircuitCurrent)
	}
}

func TestStepVoltageActuatedUndersampledJumpsStraightToSteadyState(t *testing.T) {
	pars := testLoadPars()
	var vars LoadVars

	StepVoltageActuated(pars, &vars, true, 10.0, 1e-3)

	want := 10.0 * pars.Electrical.Gain0
	if math.Abs(vars.CircuitCurrent-want) > 1e-9 {
		t.Fatalf("expected an immediate steady-state jump, got %v want %v", vars.CircuitCurrent, want)
	}
}

func TestStepCurrentActuatedTracksCommandedCurrent(t *testing.T) {
	pars := testLoadPars()
	var vars LoadVars

	StepCurrentActuated(pars, &vars, 50.0, 1e-3)

	if vars.MagnetCurrent != 50.0 || vars.CircuitCurrent != 50.0 {
		t.Fatalf("expected circuit/magnet current to follow the commanded value exactly, got %+v", vars)
	}
}

func TestStepCurrentActuatedBackSolvesVoltageFromDerivative(t *testing.T) {
	pars := testLoadPars()
	var vars LoadVars
	vars.MagnetCurrent = 10.0

	StepCurrentActuated(pars, &vars, 20.0, 1e-3)

	resistive := 20.0 * pars.Electrical.Ohms
	if vars.CircuitVoltage <= resistive {
		t.Fatalf("expected an inductive kick above the purely resistive term: v=%v resistive=%v", vars.CircuitVoltage, resistive)
	}
}

func TestStepVoltageActuatedDerivesFieldFromSaturationMap(t *testing.T) {
	pars := testLoadPars()
	var vars LoadVars

	StepVoltageActuated(pars, &vars, false, 0.0, 1e-3)
	StepVoltageActuated(pars, &vars, true, 10.0, 1e-3)

	want := pars.Saturation.Field(vars.MagnetCurrent)
	if vars.MagnetField != want {
		t.Fatalf("field not derived from current through the saturation map: got %v want %v", vars.MagnetField, want)
	}
}
