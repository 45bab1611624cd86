package rst

import "math/cmplx"

// modulusMargin scans the Nyquist range for the digital loop transfer
// function L(z) = B(z^-1)R(z^-1) / (A(z^-1)S(z^-1)) and returns the
// minimum of |1+L(e^jw)| together with the frequency (Hz) at which it
// occurs. A coarse grid covers the whole Nyquist band; extraFreqsHz are
// evaluated in addition, since a narrow dip near a specific auxiliary
// pole frequency can sit between grid points.
func modulusMargin(a, b, s, r []float64, period float64, extraFreqsHz []float64) (margin, freqHz float64) {
	if period <= 0.0 {
		return 0.0, 0.0
	}

	nyquistHz := 1.0 / (2.0 * period)

	const gridPoints = 400
	margin = -1.0

	eval := func(fHz float64) {
		if fHz <= 0.0 || fHz >= nyquistHz {
			return
		}

		w := 2.0 * 3.141592653589793 * fHz * period
		zInv := cmplx.Exp(complex(0, -w))

		num := polyEvalInvZ(b, zInv) * polyEvalInvZ(r, zInv)
		den := polyEvalInvZ(a, zInv) * polyEvalInvZ(s, zInv)

		if den == 0 {
			return
		}

		l := num / den
		d := cmplx.Abs(1 + l)

		if margin < 0.0 || d < margin {
			margin = d
			freqHz = fHz
		}
	}

	for i := 1; i < gridPoints; i++ {
		eval(nyquistHz * float64(i) / float64(gridPoints))
	}

	for _, f := range extraFreqsHz {
		eval(f)
	}

	if margin < 0.0 {
		margin = 0.0
	}

	return margin, freqHz
}

func polyEvalInvZ(coeffs []float64, zInv complex128) complex128 {
	var sum complex128
	var power complex128 = 1

	for _, c := range coeffs {
		sum += complex(c, 0) * power
		power *= zInv
	}

	return sum
}
