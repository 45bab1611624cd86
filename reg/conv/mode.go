package conv

import "github.com/krystian-wojtas/ccreg/reg/rst"

// SetMode transitions the converter's regulation state machine (§4.7).
// Grounded on regConvSetModeRT / regConvSetModeNoneOrVoltageRT /
// regConvSetModeFieldOrCurrentRT: entering CURRENT or FIELD seeds the
// RST histories so the first actuation sample equals the current
// v_ref_limited (no control bump); entering VOLTAGE carries the RST
// average of the previous actuation history forward (with forward
// saturation compensation applied to it if coming from CURRENT); entering NONE
// resets every reference and integrator.
func (c *Converter) SetMode(mode Mode) {
	if mode != c.mode {
		switch mode {
		case ModeNone, ModeVoltage:
			c.setModeNoneOrVoltage(mode)
		default: // ModeCurrent or ModeField
			c.setModeFieldOrCurrent(mode)
		}
		c.mode = mode
	}

	// regConvSetModeRT resets max_abs_err on every call, even a no-op one.
	// SetLimits must have been called for both channels first; nil errMon
	// means the caller skipped setup rather than a runtime condition to
	// recover from.
	c.Current.errMon.MaxAbsErr = 0
	c.Field.errMon.MaxAbsErr = 0
}

func (c *Converter) setModeNoneOrVoltage(mode Mode) {
	if mode == ModeVoltage {
		switch c.mode {
		case ModeField:
			c.vRef = c.Field.rstEngine.AverageAct()
			c.vRefSat = c.vRef
		case ModeCurrent:
			c.vRef = c.Current.rstEngine.AverageAct()
			if c.Saturation != nil {
				c.vRefSat = c.Saturation.VrefSat(c.Current.extrapolated, c.vRef, c.ohms())
			} else {
				c.vRefSat = c.vRef
			}
		default: // ModeNone
			c.vRefSat = c.vRef
		}
		c.vRefLimited = c.vRefSat
	} else { // ModeNone
		c.vRef, c.vRefSat, c.vRefLimited = 0, 0, 0
	}

	c.meas = 0
	c.ref, c.refLimited, c.refRST, c.refDelayed = 0, 0, 0, 0

	c.iterationCounter = 0
	c.flags.RefClip = false
	c.flags.RefRate = false

	c.refAdvance = c.IterPeriod * c.defaultVsDelayIters()

	if c.Current.errMon != nil {
		c.Current.errMon.Reset()
	}
	if c.Field.errMon != nil {
		c.Field.errMon.Reset()
	}
}

func (c *Converter) ohms() float64 {
	if c.Load == nil {
		return 0
	}
	return c.Load.Ohms
}

func (c *Converter) setModeFieldOrCurrent(mode Mode) {
	var reg *regChannel
	if mode == ModeField {
		reg = c.Field
	} else {
		reg = c.Current
	}
	c.regSignal = reg

	if reg.rstEngine == nil {
		// No RST design has been published yet: fall back to NONE rather
		// than regulate with an empty controller.
		c.setModeNoneOrVoltage(ModeNone)
		c.mode = ModeNone
		return
	}

	if c.Actuation == CurrentRef {
		// Open loop: current is commanded directly, so there is no
		// voltage regulation loop to seed beyond the history rings
		// themselves.
		c.setModeNoneOrVoltage(ModeNone)

		reg.rstEngine.Active().PureDelayPeriods = c.refAdvance / c.IterPeriod

		c.meas = reg.selectedMeas()
		reg.rstEngine.SeedHistory(c.meas, c.meas, 0)
	} else {
		rate := 0.0
		if c.mode != ModeNone {
			rate = reg.filter.Rate()
		}

		vRef := c.vRefLimited
		if c.mode == ModeCurrent && c.Saturation != nil {
			vRef = c.Saturation.InverseVrefSat(c.Current.unfiltered, c.vRefLimited, c.ohms())
		}

		c.meas = reg.selectedMeas() - rate*float64(c.iterationCounter)*c.IterPeriod

		c.refAdvance = reg.rstEngine.TrackDelayPeriods()*reg.regPeriod - reg.filterDelayIters*c.IterPeriod

		// Recompute the pure-delay estimate DelayedRef reads: the track
		// delay plus the extra periods the selected measurement view runs
		// behind the filtered one (zero when reg_select is filtered
		// itself), matching conv.c's ref_delay_periods recomputation on
		// mode entry.
		selectDelayIters := 0.0
		if reg.regSelect == RegSelectFiltered {
			selectDelayIters = reg.filterDelayIters
		}
		pureDelayPeriods := reg.rstEngine.TrackDelayPeriods()
		if reg.regPeriodIters > 0 {
			pureDelayPeriods += (reg.filterDelayIters - selectDelayIters) / float64(reg.regPeriodIters)
		}
		reg.rstEngine.Active().PureDelayPeriods = pureDelayPeriods

		reg.errMon.Reset()

		refOffset := rate * c.refAdvance
		seedMeas := c.meas - rate*float64(rst.MaxCoeffs-1)*reg.regPeriod
		reg.rstEngine.SeedHistory(seedMeas+refOffset, seedMeas, vRef)
	}

	c.refDelayed = reg.rstEngine.DelayedRef(0)
	c.ref = c.refDelayed
	c.refLimited = c.ref
	c.refRST = c.ref
}
