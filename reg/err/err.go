// Package err implements the regulation error monitor: the difference
// between a history-delayed reference and the actual measurement,
// tracked against running maximum and warning/fault thresholds.
//
// original_source/libreg kept only the field names v_err/i_err/b_err and
// the regErrCheckLimits call shape (conv.c, reg.c), not err.c itself, so
// Check's threshold/flag bookkeeping is a from-specification design; the
// err/max_abs_err/delayed_ref field names and the (enable,
// enableMaxAbsErr, delayedRef, meas) call signature are carried over
// directly.
package err

import "math"

// Rate selects how often a channel's error monitor is evaluated against
// a fresh measurement: every tick against the live measurement, or only
// once per regulation period against the value the RST regulator itself
// ran against (reg_signal->err_rate's REG_ERR_RATE_MEASUREMENT vs. the
// default regulation-period case in conv.c).
type Rate int

const (
	RateRegulation Rate = iota
	RateMeasurement
)

// Monitor tracks one channel's regulation error.
type Monitor struct {
	WarningThreshold float64
	FaultThreshold   float64
	EvalRate         Rate

	DelayedRef float64
	Err        float64
	MaxAbsErr  float64

	Warning bool
	Fault   bool
}

// NewMonitor builds a monitor with the given absolute-error thresholds.
func NewMonitor(warningThreshold, faultThreshold float64) *Monitor {
	return &Monitor{
		WarningThreshold: warningThreshold,
		FaultThreshold:   faultThreshold,
	}
}

// Reset clears the running error state, matching regErrResetLimitsVarsRT
// called whenever regulation restarts from a new reference.
func (m *Monitor) Reset() {
	m.DelayedRef = 0
	m.Err = 0
	m.MaxAbsErr = 0
	m.Warning = false
	m.Fault = false
}

// Check computes err = delayedRef - meas, updates the running maximum
// absolute error when enableMaxAbsErr is set, and updates the
// warning/fault flags when enable is set. It never itself forces the
// converter out of regulation — callers read Warning/Fault and decide.
func (m *Monitor) Check(enable, enableMaxAbsErr bool, delayedRef, meas float64) {
	m.DelayedRef = delayedRef

	if !enable {
		return
	}

	m.Err = delayedRef - meas
	absErr := math.Abs(m.Err)

	if enableMaxAbsErr && absErr > m.MaxAbsErr {
		m.MaxAbsErr = absErr
	}

	m.Warning = m.WarningThreshold > 0 && absErr > m.WarningThreshold
	m.Fault = m.FaultThreshold > 0 && absErr > m.FaultThreshold
}
