package rst

// StableDescending runs the Jury stability test on a real polynomial
// given in descending powers of z (coeffs[0] is the leading coefficient,
// coeffs[len-1] the constant term). It reports whether every root lies
// strictly inside the unit circle, which for a discrete characteristic
// polynomial means the closed loop is stable.
//
// This is the standard table-recursion form of the Jury test: at each
// step the polynomial's degree is reduced by one via
//
//	c[k] = c0*c[k] - cn*c[n-k]
//
// and stability requires |c0| > |cn| at every step down to degree 1.
// Grounded on regLimRefInit's design-time stability gate in
// original_source/libreg/src/regLim.c, which rejects an RST design
// outright rather than letting an unstable controller run; the table
// method itself is classical control theory, not C-ported code, since
// rst.c was not present in the retrievable source.
func StableDescending(coeffsDescending []float64) bool {
	n := len(coeffsDescending) - 1
	if n < 0 {
		return false
	}

	c := append([]float64(nil), coeffsDescending...)

	if c[0] <= 0.0 {
		// Normalize so the leading coefficient is positive; Jury's test
		// is insensitive to an overall sign flip of the polynomial.
		for i := range c {
			c[i] = -c[i]
		}
	}

	if c[0] <= 0.0 {
		return false
	}

	for n > 0 {
		if absFloat(c[n]) >= c[0] {
			return false
		}

		next := make([]float64, n)
		for k := 0; k < n; k++ {
			next[k] = c[0]*c[k] - c[n]*c[n-k]
		}

		c = next
		n--
	}

	return c[0] > 0.0
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
