// Package rst implements the discrete three-polynomial (R, S, T)
// regulator: pole-placement design from a first-order load time
// constant and a pair of auxiliary-pole frequencies, the per-tick
// forward actuation pass, the clip-consistent back-calculation pass,
// history-ring bookkeeping, track-delay estimation, and the atomic
// active/next parameter swap baton used by the converter orchestrator.
//
// original_source/libreg did not retain rst.c, so the pole-placement
// algorithm itself is a from-specification design rather than a ported
// one: it follows the classical fixed-integrator RST structure (S
// always carries a (1 - z^-1) factor so the loop has zero steady-state
// error by construction) solved via a small Diophantine system, and a
// Jury stability gate applied to the resulting closed-loop design. The call
// pattern — history rings, atomic active/next swap, forward/back-calc
// passes — is grounded on original_source/libreg/src/conv.c's
// regConvSwitchRstParsRT, regConvRegulateRT and regRstTrackDelayRT.
package rst

import (
	"math"

	"github.com/krystian-wojtas/ccreg/dsp"
)

// MaxCoeffs bounds the length of any R/S/T/A/B vector (N_RST_COEFFS in
// the original library).
const MaxCoeffs = 10

// Status reports the outcome of a design attempt.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusFault
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Params is one complete, ready-to-run RST design: the R/S/T polynomials
// (in ascending powers of z^-1, index 0 is the current-tick tap), the
// derived A, B and A·S+B·R vectors (computed for inspection; history
// seeding does not read them), and the stability/margin/timing metadata a
// design is judged by.
type Params struct {
	R, S, T []float64
	A, B    []float64
	ASplusBR []float64

	AlgIndex int
	DeadBeat bool

	ModulusMargin     float64 // |1+L(e^jw)| at its minimum, linear
	ModulusMarginDB   float64 // the same minimum expressed in dB, the conventional unit for loop robustness margins
	ModulusMarginFreq float64

	PureDelayPeriods  float64
	TrackDelayPeriods float64

	T0Correction float64

	OpenLoopForwardGain float64
	OpenLoopReverseGain float64

	JuryStable bool
	Status     Status
}

// DesignInputs bundles the parameters a design is computed from.
type DesignInputs struct {
	Tau              float64 // load time constant, seconds
	RegPeriod        float64 // regulation period, seconds (reg_period_iters * iter_period)
	AuxPole1Hz       float64
	AuxPole2Hz       float64
	AuxPole2Damping  float64
	AuxPole4Hz       float64
	AuxPole5Hz       float64
	PureDelayPeriods float64
}

// Design builds an RST parameter set by placing two dominant closed
// loop poles derived from AuxPole1Hz/AuxPole2Hz(+damping) against a
// discretized first-order plant, using a fixed (1 - z^-1) integrator
// factor baked into S so the closed loop has zero DC tracking error by
// construction. AuxPole4Hz/AuxPole5Hz are folded in as extra candidate
// frequencies for the modulus-margin search, since they name frequency
// bands the design should stay robust against without changing the
// controller's order. A design is rejected outright (StatusFault) if
// the Jury test fails or S[0] collapses toward zero, and merely flagged
// (StatusWarning) if it passes but the modulus margin is thin.
func Design(in DesignInputs) *Params {
	a1 := -math.Exp(-in.RegPeriod / in.Tau)
	b0 := 1.0 + a1

	A := []float64{1.0, a1}
	B := []float64{0.0, b0}

	p1, p2 := dominantPoles(in.AuxPole1Hz, in.AuxPole2Hz, in.AuxPole2Damping, in.RegPeriod)

	d1 := -(p1 + p2)
	d2 := p1 * p2

	S := []float64{1.0, -1.0}

	var r0, r1 float64
	if b0 != 0.0 {
		r0 = (d1 - a1 + 1.0) / b0
		r1 = (d2 + a1) / b0
	}
	R := []float64{r0, r1}

	t0 := sumVec(R) + sumVec(S)
	T := []float64{t0}

	D := []float64{1.0, d1, d2}

	p := &Params{
		R: R, S: S, T: T,
		A: A, B: B,
		AlgIndex:         1,
		PureDelayPeriods: in.PureDelayPeriods,
		T0Correction:     t0,
	}

	p.ASplusBR = polyAdd(polyMul(A, S), polyMul(B, R))

	// StableDescending wants descending powers of z, not ascending
	// powers of z^-1; for a degree-n polynomial in z^-1 the equivalent
	// z-domain polynomial is z^n * D(z^-1), whose coefficients in
	// descending powers of z are D's own, in the same order.
	descending := D
	p.JuryStable = StableDescending(descending)

	margin, freq := modulusMargin(A, B, S, R, in.RegPeriod, []float64{in.AuxPole1Hz, in.AuxPole2Hz, in.AuxPole4Hz, in.AuxPole5Hz})
	p.ModulusMargin = margin
	p.ModulusMarginDB = dsp.LinearToDB(margin)
	p.ModulusMarginFreq = freq

	switch {
	case !p.JuryStable || S[0] < 1.0e-10:
		p.Status = StatusFault
	case margin < modulusMarginWarning:
		p.Status = StatusWarning
	default:
		p.Status = StatusOK
	}

	p.OpenLoopForwardGain = b0 / (1.0 - a1)
	if p.OpenLoopForwardGain != 0.0 {
		p.OpenLoopReverseGain = 1.0 / p.OpenLoopForwardGain
	}

	return p
}

// modulusMarginWarning is the minimum acceptable |1+L(e^jw)| before a
// design is merely flagged rather than rejected outright.
const modulusMarginWarning = 0.5

func sumVec(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

// dominantPoles turns the two auxiliary-pole frequencies (the second
// with a damping ratio) into a pair of real closed-loop pole positions.
// A lightly damped pair collapses to two real poles at slightly
// different radii rather than a true complex pair, since S and R here
// are real degree-1 polynomials and can only place two real roots.
func dominantPoles(f1, f2, zeta2, period float64) (p1, p2 float64) {
	if f1 <= 0.0 {
		f1 = 1.0
	}
	if f2 <= 0.0 {
		f2 = f1
	}
	if zeta2 <= 0.0 {
		zeta2 = 1.0
	}

	p1 = math.Exp(-2.0 * math.Pi * f1 * period)
	p2 = math.Exp(-2.0 * math.Pi * zeta2 * f2 * period)

	return p1, p2
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func polyAdd(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range a {
		out[i] += a[i]
	}
	for i := range b {
		out[i] += b[i]
	}
	return out
}

func reverse(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}
