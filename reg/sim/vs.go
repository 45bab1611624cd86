// Package sim implements the simulator: a voltage-source response model,
// the magnet circuit's current/field integration under either voltage or
// current actuation, and per-channel measurement synthesis (delay, noise
// and tone, and a random invalid-measurement injector).
//
// original_source/libreg kept the field layout of struct reg_sim_vs_vars,
// struct reg_sim_load_vars and struct reg_sim_meas in libreg.h, and the
// call pattern of regConvSimulateRT in conv.c, but none of regSimVsRT,
// regSimLoadRT or the sim.c/sim.h files that would define the actual
// voltage-source discretization were retrievable. The Tustin mapping
// below is therefore a from-specification design: a standard bilinear
// transform of a second-order analytic response, grounded on the
// well-known biquad derivation rather than on any ported C.
package sim

import (
	"fmt"
	"math"
)

// MaxVsCoeffs bounds the z-domain numerator/denominator length, standing
// in for libreg's N_VS_SIM_COEFFS.
const MaxVsCoeffs = 6

// VsConfig describes how to build the voltage source response, either
// from an analytic second-order model (bandwidth, damping, and an
// optional real zero) or from direct z-domain coefficients.
type VsConfig struct {
	BandwidthHz float64
	Damping     float64
	ZeroTau     float64 // 0 disables the numerator zero

	// Num/Den are used directly when BandwidthHz <= 0, and also serve as
	// the fallback response when the analytic bandwidth exceeds Nyquist.
	// Den[0] must be 1; both slices are in ascending powers of z^-1
	// (Num[0], Den[0] are the z^0 coefficients).
	Num []float64
	Den []float64
}

// VsPars is the resolved, ready-to-run voltage source response.
type VsPars struct {
	Num []float64
	Den []float64

	// Undersampled is set when the voltage source's own natural response
	// time is shorter than the tick period, meaning it settles to its
	// steady state within a single tick. Callers use this to select
	// delay.Bypass over a fractional delay.Line for this channel.
	Undersampled bool
}

// VsVars is the per-instance filter state (input/output history) driven
// by VsPars.
type VsVars struct {
	x []float64
	y []float64
}

// InitVs resolves config into pars for a tick period of period seconds.
func InitVs(config *VsConfig, period float64, pars *VsPars) error {
	switch {
	case config.BandwidthHz > 0:
		wn := 2 * math.Pi * config.BandwidthHz
		nyquist := math.Pi / period

		if wn >= nyquist {
			if len(config.Num) == 0 || len(config.Den) == 0 {
				return fmt.Errorf("sim: bandwidth %.3gHz exceeds Nyquist for period %gs and no fallback coefficients were given", config.BandwidthHz, period)
			}
			pars.Num = append([]float64(nil), config.Num...)
			pars.Den = append([]float64(nil), config.Den...)
		} else {
			tustinSecondOrder(wn, config.Damping, config.ZeroTau, period, pars)
		}

		if config.Damping > 0 {
			natural := 1.0 / (config.Damping * wn)
			pars.Undersampled = natural < period
		}

	case len(config.Num) > 0 && len(config.Den) > 0:
		pars.Num = append([]float64(nil), config.Num...)
		pars.Den = append([]float64(nil), config.Den...)

	default:
		return fmt.Errorf("sim: voltage source config needs either BandwidthHz or explicit Num/Den coefficients")
	}

	if len(pars.Num) > MaxVsCoeffs || len(pars.Den) > MaxVsCoeffs {
		return fmt.Errorf("sim: voltage source coefficients exceed MaxVsCoeffs (%d)", MaxVsCoeffs)
	}
	if len(pars.Num) != len(pars.Den) {
		return fmt.Errorf("sim: voltage source Num/Den must be the same length")
	}
	if pars.Den[0] != 1.0 {
		return fmt.Errorf("sim: voltage source Den[0] must be 1")
	}

	return nil
}

// tustinSecondOrder bilinear-transforms
//
//	H(s) = wn^2 * (1 + s*tau0) / (s^2 + 2*zeta*wn*s + wn^2)
//
// using s = (2/period)*(1-z^-1)/(1+z^-1), producing a direct-form
// [b0 b1 b2]/[1 a1 a2] biquad.
func tustinSecondOrder(wn, zeta, tau0, period float64, pars *VsPars) {
	c := 2.0 / period

	a0raw := c*c + 2*zeta*wn*c + wn*wn
	a1raw := 2 * (wn*wn - c*c)
	a2raw := c*c - 2*zeta*wn*c + wn*wn

	b0 := wn * wn * (1 + tau0*c)
	b1 := wn * wn * 2
	b2 := wn * wn * (1 - tau0*c)

	pars.Num = []float64{b0 / a0raw, b1 / a0raw, b2 / a0raw}
	pars.Den = []float64{1.0, a1raw / a0raw, a2raw / a0raw}
}

// Transform advances the voltage source's internal state by one tick and
// returns v_circuit for the given v_ref.
func Transform(pars *VsPars, vars *VsVars, vRef float64) float64 {
	n := len(pars.Num)
	if len(vars.x) != n {
		vars.x = make([]float64, n)
		vars.y = make([]float64, n-1)
	}

	for i := n - 1; i > 0; i-- {
		vars.x[i] = vars.x[i-1]
	}
	vars.x[0] = vRef

	y := 0.0
	for i, b := range pars.Num {
		y += b * vars.x[i]
	}
	for i := 1; i < n; i++ {
		y -= pars.Den[i] * vars.y[i-1]
	}

	if len(vars.y) > 0 {
		for i := len(vars.y) - 1; i > 0; i-- {
			vars.y[i] = vars.y[i-1]
		}
		vars.y[0] = y
	}

	return y
}
