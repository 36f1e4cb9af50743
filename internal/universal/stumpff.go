package universal

import "math"

// stumpff returns the Stumpff functions C(z) and S(z).
func stumpff(z float64) (c, s float64) {
	switch {
	case math.Abs(z) < 1e-3:
		// Series through z^3 keep both functions to full precision here.
		c = 1.0/2 - z/24 + z*z/720 - z*z*z/40320
		s = 1.0/6 - z/120 + z*z/5040 - z*z*z/362880
	case z > 0:
		sz := math.Sqrt(z)
		c = (1 - math.Cos(sz)) / z
		s = (sz - math.Sin(sz)) / (sz * sz * sz)
	default:
		sz := math.Sqrt(-z)
		c = (math.Cosh(sz) - 1) / -z
		s = (math.Sinh(sz) - sz) / (sz * sz * sz)
	}
	return c, s
}
