package conv

import (
	regerr "github.com/krystian-wojtas/ccreg/reg/err"
	"github.com/krystian-wojtas/ccreg/reg/sim"
)

// swapPendingRST performs the atomic RST parameter handoff for both
// regulated channels. Must run before any other read of RST
// coefficients this tick (§4.4, §5's ordering guarantee).
func (c *Converter) swapPendingRST() {
	if c.Field.rstEngine != nil {
		c.Field.rstEngine.SwapIfPending()
	}
	if c.Current.rstEngine != nil {
		c.Current.rstEngine.SwapIfPending()
	}
}

// intakeMeasurement resolves one channel's usable unfiltered sample for
// this tick: the raw input if valid, or a substitute (§4.7 step 2)
// otherwise — the history-delayed reference minus the last regulation
// error if this is the regulated channel, or a rate extrapolation of the
// previous sample if not.
func (c *Converter) intakeMeasurement(ch *regChannel, isRegulated bool) {
	if ch.input.Status == MeasOK {
		ch.unfiltered = ch.input.Value
		return
	}

	ch.invalidInputCounter++

	if isRegulated {
		ch.unfiltered = c.refDelayed - ch.errMon.Err
	} else if ch.filter != nil {
		ch.unfiltered += ch.filter.Rate() * c.IterPeriod
	}
}

// Tick runs one full iteration of the dataflow in §2: measurement
// intake, limit checks, filtering, regulation (at the regulation
// period), and returns whether this tick was a regulation iteration.
// Grounded on regConvSetMeasRT + regConvRegulateRT.
func (c *Converter) Tick(refIn float64, enableMaxAbsErr bool) bool {
	c.swapPendingRST()

	c.intakeMeasurement(c.Current, c.mode == ModeCurrent)
	c.intakeMeasurement(c.Field, c.mode == ModeField)

	if c.mode == ModeCurrent || c.mode == ModeField {
		c.iterationCounter++
		periodIters := uint32(1)
		if c.regSignal != nil && c.regSignal.regPeriodIters > 0 {
			periodIters = uint32(c.regSignal.regPeriodIters)
		}
		if c.iterationCounter >= periodIters {
			c.iterationCounter = 0
		}
		if c.regSignal != nil && c.regSignal.rstEngine != nil {
			c.refDelayed = c.regSignal.rstEngine.DelayedRef(float64(c.iterationCounter))
		}
	}

	if c.Current.limMeas != nil {
		c.Current.limMeas.Check(c.Current.unfiltered)
	}
	if c.Current.rms != nil {
		c.Current.rms.Check(c.Current.unfiltered)
	}
	if c.mode == ModeField && c.Field.limMeas != nil {
		c.Field.limMeas.Check(c.Field.unfiltered)
	}

	if c.Actuation == VoltageRef {
		if c.Voltage.errMon != nil {
			c.Voltage.errMon.Check(true, true, c.Voltage.errMon.DelayedRef, c.Voltage.meas)
		}
		if c.Voltage.limRef != nil {
			c.Voltage.limRef.RecalcVoltageEnvelope(c.Current.unfiltered)
		}
	}

	c.runFilter(c.Field)
	c.runFilter(c.Current)

	isRegTick := c.iterationCounter == 0

	if reg := c.regSignal; reg != nil && reg.errMon != nil && reg.errMon.EvalRate == regerr.RateMeasurement && !isRegTick {
		reg.errMon.Check(true, enableMaxAbsErr, c.refDelayed, reg.selectedMeas())
	}

	switch {
	case c.Actuation == CurrentRef:
		c.regulateOpenLoopCurrent(refIn)
	case c.mode == ModeVoltage:
		c.regulateVoltage(refIn)
	case (c.mode == ModeCurrent || c.mode == ModeField) && isRegTick:
		c.regulateClosedLoop(refIn, enableMaxAbsErr)
	}

	return isRegTick
}

func (c *Converter) runFilter(ch *regChannel) {
	if ch.filter == nil {
		ch.filtered = ch.unfiltered
		ch.extrapolated = ch.unfiltered
		return
	}
	ch.filtered = ch.filter.Run(ch.unfiltered)
	ch.extrapolated = ch.filter.Extrapolated
}

func (c *Converter) regulateOpenLoopCurrent(refIn float64) {
	c.ref = refIn
	c.refLimited = c.Current.limRef.Clip(c.IterPeriod, c.ref, c.refLimited)
	c.meas = c.Current.selectedMeas()

	if c.Current.rstEngine != nil {
		c.Current.rstEngine.RecordOpenLoop(c.refLimited, c.meas)
	}
}

func (c *Converter) regulateVoltage(refIn float64) {
	c.vRef = refIn
	c.vRefSat = refIn
	c.vRefLimited = c.Voltage.limRef.Clip(c.IterPeriod, c.vRefSat, c.vRefLimited)

	flags := c.Voltage.limRef.Flags()
	c.flags.RefClip = flags.Clip
	c.flags.RefRate = flags.Rate
}

// regulateClosedLoop runs the RST forward pass, applies magnet
// saturation compensation (CURRENT mode only), clips to the voltage
// envelope, and — if the clipper limited the result — back-calculates a
// self-consistent reference so the next tick's forward pass reproduces
// the clipped actuation exactly (§4.4 step 3, tested by invariant 7).
func (c *Converter) regulateClosedLoop(refIn float64, enableMaxAbsErr bool) {
	reg := c.regSignal

	c.ref = refIn
	c.meas = reg.selectedMeas()
	unfilteredCurrent := c.Current.unfiltered

	c.refLimited = reg.limRef.Clip(reg.regPeriod, c.ref, c.refLimited)

	c.vRef = reg.rstEngine.CalcAct(c.refLimited, c.meas)

	if c.mode == ModeCurrent && c.Saturation != nil {
		c.vRefSat = c.Saturation.VrefSat(unfilteredCurrent, c.vRef, c.ohms())
	} else {
		c.vRefSat = c.vRef
	}

	c.vRefLimited = c.Voltage.limRef.Clip(reg.regPeriod, c.vRefSat, c.vRefLimited)

	vFlags := c.Voltage.limRef.Flags()

	if vFlags.Clip || vFlags.Rate {
		vBack := c.vRefLimited
		if c.mode == ModeCurrent && c.Saturation != nil {
			vBack = c.Saturation.InverseVrefSat(unfilteredCurrent, c.vRefLimited, c.ohms())
		}
		c.refRST = reg.rstEngine.BackCalcRef(vBack)
	} else {
		c.refRST = c.refLimited
	}

	refFlags := reg.limRef.Flags()
	c.flags.RefClip = refFlags.Clip
	c.flags.RefRate = refFlags.Rate || vFlags.Clip || vFlags.Rate

	reg.rstEngine.UpdateTrackDelay(refFlags.Rate, c.IterPeriod/reg.regPeriod)

	if reg.errMon != nil {
		reg.errMon.Check(true, enableMaxAbsErr, c.refDelayed, reg.filtered)
	}
}

// Simulate advances the voltage source and load models by one tick and
// synthesizes the next simulated field/current/voltage measurements,
// ready to be fed back into SetMeasurements by the harness driving the
// loop (§4.6). Grounded on regConvSimulateRT.
func (c *Converter) Simulate(vPerturbation float64) {
	if !c.simEnabled {
		return
	}

	var vCircuit float64

	if c.Actuation == VoltageRef {
		vCircuit = sim.Transform(&c.simVsPars, &c.simVsVars, c.vRefLimited)
		sim.StepVoltageActuated(&c.simLoad, &c.simVars, c.simVsPars.Undersampled, vCircuit+vPerturbation, c.IterPeriod)
	} else {
		c.simVars.CircuitCurrent = sim.Transform(&c.simVsPars, &c.simVsVars, c.refLimited)
		sim.StepCurrentActuated(&c.simLoad, &c.simVars, c.simVars.CircuitCurrent, c.IterPeriod)
	}

	c.SimB = c.sampleChannel(c.fieldSim, c.simVars.MagnetField)
	c.SimI = c.sampleChannel(c.currentSim, c.simVars.CircuitCurrent)
	c.SimV = c.sampleChannel(c.voltageSim, c.simVars.CircuitVoltage)

	// The undelayed, noise-free voltage sample stands in for the voltage
	// channel's delayed_ref in error accounting, matching conv->v.err.delayed_ref.
	if c.Voltage.errMon != nil {
		c.Voltage.errMon.DelayedRef = c.simVars.CircuitVoltage
	}
}

func (c *Converter) sampleChannel(ch *sim.Channel, load float64) MeasSignal {
	if ch == nil {
		return MeasSignal{Value: load, Status: MeasOK}
	}

	status, value := ch.Sample(load)
	s := MeasOK
	if status == sim.Invalid {
		s = MeasInvalid
	}
	return MeasSignal{Value: value, Status: s}
}
