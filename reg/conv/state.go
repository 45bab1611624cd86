package conv

import (
	"github.com/krystian-wojtas/ccreg/reg/lim"
	"github.com/krystian-wojtas/ccreg/reg/rst"
)

// ChannelState is a read-only snapshot of one regulated channel's
// measurement views, limit flags and error accounting after a tick, for
// a caller (the harness TUI, a scenario test) that has no other way to
// reach into a Converter's unexported per-channel state.
type ChannelState struct {
	Unfiltered, Filtered, Extrapolated float64

	MeasFlags lim.MeasFlags
	RmsFlags  lim.RmsFlags
	RefFlags  lim.RefFlags

	Err        float64
	MaxAbsErr  float64
	DelayedRef float64
	Warning    bool
	Fault      bool

	InvalidInputCount uint64

	RefLimited float64
}

func (ch *regChannel) snapshot() ChannelState {
	s := ChannelState{
		Unfiltered:        ch.unfiltered,
		Filtered:          ch.filtered,
		Extrapolated:      ch.extrapolated,
		InvalidInputCount: ch.invalidInputCounter,
		RefLimited:        ch.refLimited,
	}
	if ch.limMeas != nil {
		s.MeasFlags = ch.limMeas.Flags()
	}
	if ch.rms != nil {
		s.RmsFlags = ch.rms.Flags()
	}
	if ch.limRef != nil {
		s.RefFlags = ch.limRef.Flags()
	}
	if ch.errMon != nil {
		s.Err = ch.errMon.Err
		s.MaxAbsErr = ch.errMon.MaxAbsErr
		s.DelayedRef = ch.errMon.DelayedRef
		s.Warning = ch.errMon.Warning
		s.Fault = ch.errMon.Fault
	}
	return s
}

// State is a full read-only snapshot of the converter after a tick,
// matching the external-interface table's "tick() ... writes V/I/B
// refs, limits flags, errors" output description (spec.md §6).
type State struct {
	Mode Mode

	Ref, RefLimited             float64
	VRef, VRefSat, VRefLimited  float64
	RefClip, RefRate            bool

	Field, Current ChannelState

	VoltageErr       float64
	VoltageMaxAbsErr float64
	VoltageFault     bool
	VoltageWarning   bool
}

// State snapshots the converter's publicly observable state. Safe to
// call between ticks; never mutates anything.
func (c *Converter) State() State {
	s := State{
		Mode:        c.mode,
		Ref:         c.ref,
		RefLimited:  c.refLimited,
		VRef:        c.vRef,
		VRefSat:     c.vRefSat,
		VRefLimited: c.vRefLimited,
		RefClip:     c.flags.RefClip,
		RefRate:     c.flags.RefRate,
		Field:       c.Field.snapshot(),
		Current:     c.Current.snapshot(),
	}
	if c.Voltage.errMon != nil {
		s.VoltageErr = c.Voltage.errMon.Err
		s.VoltageMaxAbsErr = c.Voltage.errMon.MaxAbsErr
		s.VoltageFault = c.Voltage.errMon.Fault
		s.VoltageWarning = c.Voltage.errMon.Warning
	}
	return s
}

// RstStatus reports the last-published design's stability verdict and
// modulus margin for a regulated channel, or rst.StatusFault with a zero
// margin if no design has been published yet.
func (c *Converter) RstStatus(channel ChannelKind) (status rst.Status, modulusMarginDB float64) {
	ch := c.channelFor(channel)
	if ch.rstEngine == nil {
		return rst.StatusFault, 0
	}
	p := ch.rstEngine.Active()
	return p.Status, p.ModulusMarginDB
}
