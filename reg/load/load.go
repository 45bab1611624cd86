// Package load implements the analytic R-L magnet circuit model:
// unsaturated step-response coefficients, a three-region piecewise
// linear current/field saturation map, and the voltage-reference
// saturation compensation round trip.
//
// libreg's load.c was not present in the retrievable source, so this is
// a from-specification design rather than a line-for-line port; it
// follows the field names and overall shape of the rest of libreg
// (original_source/libreg/inc/libreg.h's reg_load / reg_sim_state
// declarations) and the cascaded-region style of regLim.c's envelope
// computation.
package load

import (
	"math"

	"github.com/krystian-wojtas/ccreg/dsp"
)

// Electrical holds the analytic series/parallel/magnet resistor network
// and the unsaturated inductance, plus the derived step-response
// coefficients used by the voltage-source simulator.
type Electrical struct {
	OhmsSer float64
	OhmsPar float64
	OhmsMag float64

	Ohms  float64 // total resistance seen by the circuit
	Ohms1 float64 // ohms_ser
	Ohms2 float64 // ohms_par, kept for inverse computations

	Henrys float64 // unsaturated inductance L0

	Tau float64 // time constant: L / (ohms_ser + ohms_par*ohms_mag/(ohms_par+ohms_mag))

	// Step response coefficients for a voltage step applied through the
	// circuit, as used by the Tustin-free analytic simulator path.
	Gain0, Gain1, Gain2, Gain3 float64
}

// NewElectrical builds the analytic load model from the series resistor,
// the parallel (free-wheel/damping) resistor, the magnet's own
// resistance, and the unsaturated magnet inductance.
func NewElectrical(ohmsSer, ohmsPar, ohmsMag, henrys float64) *Electrical {
	e := &Electrical{
		OhmsSer: ohmsSer,
		OhmsPar: ohmsPar,
		OhmsMag: ohmsMag,
		Henrys:  henrys,
	}

	parallelCombined := 0.0
	if ohmsPar+ohmsMag != 0.0 {
		parallelCombined = ohmsPar * ohmsMag / (ohmsPar + ohmsMag)
	}

	e.Ohms = ohmsSer + parallelCombined
	e.Ohms1 = ohmsSer
	e.Ohms2 = ohmsPar

	if e.Ohms != 0.0 {
		e.Tau = henrys / e.Ohms
	}

	e.recomputeStepResponse()

	return e
}

// recomputeStepResponse derives the four analytic gain coefficients used
// to compute the circuit's response to a voltage step over one
// iteration without numerical integration, matching the shape of a
// first-order RL step response with a parallel damping path:
//
//	i(t) = gain0 + gain1*exp(-t/tau)
//	v_across_magnet(t) = gain2 + gain3*exp(-t/tau)
func (e *Electrical) recomputeStepResponse() {
	if e.Ohms == 0.0 {
		return
	}

	e.Gain0 = 1.0 / e.Ohms
	e.Gain1 = -e.Gain0
	e.Gain2 = e.OhmsMag / (e.OhmsPar + e.OhmsMag)
	e.Gain3 = -e.Gain2
}

// StepResponse returns the magnet current reached after advancing by dt
// seconds under a constant applied voltage v, starting from current i0.
func (e *Electrical) StepResponse(v, i0, dt float64) float64 {
	if e.Tau <= 0.0 {
		return i0
	}

	iInf := v * e.Gain0
	decay := dsp.FastPow(math.E, -dt/e.Tau)

	return iInf + (i0-iInf)*decay
}

// SaturationRegion describes one linear segment of the piecewise-linear
// current-to-field saturation map.
type SaturationRegion struct {
	IStart, IEnd     float64
	FieldAtStart     float64
	Slope            float64 // dField/dI within this region
}

// Saturation is the three-region piecewise-linear magnet saturation
// model: linear below IStart, a transition region with reduced slope
// between IStart and IEnd, and a further-reduced (but still linear,
// never flat) slope beyond IEnd.
type Saturation struct {
	GaussPerAmp float64 // unsaturated slope, field(i) = GaussPerAmp*i in the linear region

	iSatStart, iSatEnd float64
	lSat               float64 // fully-saturated incremental inductance factor, 0<lSat<1

	regions [3]SaturationRegion
}

// NewSaturation builds the three-region map from the unsaturated
// gauss-per-amp slope and the {L_sat, I_sat_start, I_sat_end} triple:
// lSat is the fractional inductance (and hence slope) retained once the
// magnet is fully saturated.
func NewSaturation(gaussPerAmp, lSat, iSatStart, iSatEnd float64) *Saturation {
	s := &Saturation{
		GaussPerAmp: gaussPerAmp,
		iSatStart:   iSatStart,
		iSatEnd:     iSatEnd,
		lSat:        lSat,
	}

	if iSatEnd <= iSatStart {
		iSatEnd = iSatStart + 1.0
		s.iSatEnd = iSatEnd
	}

	fieldAtStart := gaussPerAmp * iSatStart

	// Middle region's slope is the average of the unsaturated and fully
	// saturated slopes so the map stays continuous and monotonic without
	// a kink large enough to destabilize a regulator operating near the
	// knee.
	midSlope := gaussPerAmp * (1.0 + lSat) / 2.0
	fieldAtEnd := fieldAtStart + midSlope*(iSatEnd-iSatStart)

	finalSlope := gaussPerAmp * lSat

	s.regions = [3]SaturationRegion{
		{IStart: math.Inf(-1), IEnd: iSatStart, FieldAtStart: math.Inf(-1), Slope: gaussPerAmp},
		{IStart: iSatStart, IEnd: iSatEnd, FieldAtStart: fieldAtStart, Slope: midSlope},
		{IStart: iSatEnd, IEnd: math.Inf(1), FieldAtStart: fieldAtEnd, Slope: finalSlope},
	}

	return s
}

// regionFor returns the region covering current magnitude absI (the map
// is built and evaluated symmetrically around zero via sign handling in
// the public methods).
func (s *Saturation) regionFor(absI float64) SaturationRegion {
	switch {
	case absI < s.iSatStart:
		return s.regions[0]
	case absI < s.iSatEnd:
		return s.regions[1]
	default:
		return s.regions[2]
	}
}

// Field converts magnet current to field in Gauss through the
// piecewise-linear saturation map, symmetric for negative currents.
func (s *Saturation) Field(i float64) float64 {
	sign := 1.0
	absI := i
	if i < 0 {
		sign = -1.0
		absI = -i
	}

	switch {
	case absI < s.iSatStart:
		return sign * s.GaussPerAmp * absI
	case absI < s.iSatEnd:
		r := s.regions[1]
		return sign * (r.FieldAtStart + r.Slope*(absI-r.IStart))
	default:
		r := s.regions[2]
		return sign * (r.FieldAtStart + r.Slope*(absI-r.IStart))
	}
}

// SatFactor returns the instantaneous ratio L(i)/L0 — the local slope of
// the saturation curve relative to the unsaturated slope — used when
// back-solving the simulator's inductance term.
func (s *Saturation) SatFactor(i float64) float64 {
	if s.GaussPerAmp == 0.0 {
		return 1.0
	}

	absI := math.Abs(i)

	return s.regionFor(absI).Slope / s.GaussPerAmp
}

// VrefSat adjusts a commanded voltage reference to compensate for the
// extra back-EMF the magnet develops while entering saturation: as the
// local inductance drops below L0, less voltage is needed to achieve
// the same dI/dt, so the correction scales v's inductive component by
// SatFactor relative to the resistive component, which is unaffected by
// saturation.
func (s *Saturation) VrefSat(i, v, ohms float64) float64 {
	factor := s.SatFactor(i)
	if factor <= 0.0 {
		factor = 1.0e-9
	}

	resistive := ohms * i
	inductive := v - resistive

	return resistive + inductive*factor
}

// InverseVrefSat undoes VrefSat, recovering the uncompensated voltage
// from a (possibly clipped) compensated one, so regulator histories can
// be back-calculated against the pre-compensation quantity.
func (s *Saturation) InverseVrefSat(i, vSat, ohms float64) float64 {
	factor := s.SatFactor(i)
	if factor <= 0.0 {
		factor = 1.0e-9
	}

	resistive := ohms * i
	inductiveSat := vSat - resistive

	return resistive + inductiveSat/factor
}

// AmpsToGauss and GaussToAmps apply the model's single linear multiplier
// for the unsaturated-region conversion used by channels that regulate
// in field units but measure in amps, or vice versa.
func (s *Saturation) AmpsToGauss(amps float64) float64 { return amps * s.GaussPerAmp }
func (s *Saturation) GaussToAmps(gauss float64) float64 {
	if s.GaussPerAmp == 0.0 {
		return 0.0
	}
	return gauss / s.GaussPerAmp
}
