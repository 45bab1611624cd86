package sim

import "github.com/krystian-wojtas/ccreg/reg/load"

// LoadPars bundles the electrical and saturation models the load
// simulator advances each tick.
type LoadPars struct {
	Electrical *load.Electrical
	Saturation *load.Saturation
}

// LoadVars is the simulator's running state: the circuit and magnet
// currents (both step functions set them equal), the circuit voltage,
// and the derived field.
type LoadVars struct {
	CircuitCurrent float64
	MagnetCurrent  float64
	CircuitVoltage float64
	MagnetField    float64
}

// StepVoltageActuated advances the load by period seconds under an
// applied circuit voltage vCircuit (the voltage source's output, plus
// any injected perturbation), matching regConvSimulateRT's
// REG_VOLTAGE_REF branch: call regSimVsRT (see Transform) first, then
// feed its output plus the perturbation in here.
//
// When undersampled, the magnet current jumps straight to the voltage's
// steady-state gain rather than integrating the exponential transient,
// since the response settles well within one tick anyway.
func StepVoltageActuated(pars *LoadPars, vars *LoadVars, undersampled bool, vCircuit, period float64) {
	vars.CircuitVoltage = vCircuit

	if undersampled {
		vars.CircuitCurrent = vCircuit * pars.Electrical.Gain0
	} else {
		vars.CircuitCurrent = pars.Electrical.StepResponse(vCircuit, vars.CircuitCurrent, period)
	}

	vars.MagnetCurrent = vars.CircuitCurrent
	vars.MagnetField = pars.Saturation.Field(vars.MagnetCurrent)
}

// StepCurrentActuated advances the load under CURRENT_REF actuation,
// where the voltage source model stands in for a current source and the
// circuit voltage is back-solved from V = I.R + L(I).dI/dt using the
// current from the previous tick for the derivative, exactly as
// regConvSimulateRT's REG_CURRENT_REF branch does.
func StepCurrentActuated(pars *LoadPars, vars *LoadVars, circuitCurrent, period float64) {
	prevMagnetCurrent := vars.MagnetCurrent
	vars.CircuitCurrent = circuitCurrent

	satFactor := pars.Saturation.SatFactor(circuitCurrent)
	dIdt := (circuitCurrent - prevMagnetCurrent) / period

	vars.CircuitVoltage = circuitCurrent*pars.Electrical.Ohms + pars.Electrical.Henrys*satFactor*dIdt

	vars.MagnetCurrent = circuitCurrent
	vars.MagnetField = pars.Saturation.Field(vars.MagnetCurrent)
}
