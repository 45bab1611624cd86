package conv

// RegulateFeedforward runs the RST regulator backwards: given a supplied
// voltage reference (rather than a field/current reference), it
// back-calculates the field/current reference that would have produced
// it, then clips and records history exactly as the forward path does.
// Grounded on libreg/src/reg.c's regField/regCurrent feedforward_control
// branch — used when an outer loop (or a test harness) wants to command
// the converter in voltage terms while keeping the RST history
// consistent for a later switch back to closed-loop regulation.
//
// Only meaningful while actuation is VoltageRef and the converter is
// regulating CURRENT or FIELD; it is a no-op otherwise.
func (c *Converter) RegulateFeedforward(vRefIn float64, enableMaxAbsErr bool) {
	reg := c.regSignal
	if c.Actuation != VoltageRef || reg == nil || reg.rstEngine == nil {
		return
	}
	if c.mode != ModeCurrent && c.mode != ModeField {
		return
	}

	unfilteredCurrent := c.Current.unfiltered

	c.vRef = vRefIn
	if c.mode == ModeCurrent && c.Saturation != nil {
		c.vRefSat = c.Saturation.VrefSat(unfilteredCurrent, c.vRef, c.ohms())
	} else {
		c.vRefSat = c.vRef
	}

	c.vRefLimited = c.Voltage.limRef.Clip(reg.regPeriod, c.vRefSat, c.vRefLimited)

	vBack := c.vRefLimited
	if c.mode == ModeCurrent && c.Saturation != nil {
		vBack = c.Saturation.InverseVrefSat(unfilteredCurrent, c.vRefLimited, c.ohms())
	}

	c.refRST = reg.rstEngine.BackCalcRef(vBack)
	c.refLimited = reg.limRef.Clip(reg.regPeriod, c.refRST, c.refLimited)
	c.ref = c.refLimited

	vFlags := c.Voltage.limRef.Flags()
	refFlags := reg.limRef.Flags()
	c.flags.RefClip = refFlags.Clip
	c.flags.RefRate = refFlags.Rate || vFlags.Clip || vFlags.Rate

	reg.rstEngine.UpdateTrackDelay(refFlags.Rate, c.IterPeriod/reg.regPeriod)

	if reg.errMon != nil {
		reg.errMon.Check(true, enableMaxAbsErr, c.refDelayed, reg.filtered)
	}
}
