package integrators

import (
	"math"
	"sort"

	"github.com/san-kum/orbprop/internal/orbit"
)

// Settings control Integrate and IntegrateMany.
type Settings struct {
	// Step is the fixed step, or the initial step for adaptive integrators (days).
	Step float64
	// Tolerance is the relative error target for adaptive integrators.
	Tolerance float64
}

// Integrate advances x from t0 to t1, landing exactly on t1. Adaptive
// integrators are driven with error control; others take equal steps no
// longer than s.Step.
func Integrate(dyn orbit.System, integ orbit.Integrator, x orbit.State, t0, t1 float64, s Settings) (orbit.State, error) {
	span := t1 - t0
	if span == 0 {
		return x.Clone(), nil
	}

	if ai, ok := integ.(orbit.AdaptiveIntegrator); ok {
		return integrateAdaptive(dyn, ai, x, t0, t1, s)
	}

	n := int(math.Ceil(math.Abs(span) / s.Step))
	if n < 1 {
		n = 1
	}
	dt := span / float64(n)
	t := t0
	for i := 0; i < n; i++ {
		x = integ.Step(dyn, x, t, dt)
		t = t0 + float64(i+1)*dt
	}
	if !x.IsValid() {
		return nil, &StepError{T: t, Dt: dt, Wrapped: ErrNonFinite}
	}
	return x, nil
}

func integrateAdaptive(dyn orbit.System, integ orbit.AdaptiveIntegrator, x orbit.State, t0, t1 float64, s Settings) (orbit.State, error) {
	dir := math.Copysign(1, t1-t0)
	h := dir * math.Min(s.Step, math.Abs(t1-t0))
	t := t0

	for dir*(t1-t) > 0 {
		remaining := t1 - t
		// Stretch the final step slightly rather than leave a sliver behind.
		last := 1.01*math.Abs(h) >= math.Abs(remaining)
		if last {
			h = remaining
		}

		next, taken, suggested, err := integ.StepAdaptive(dyn, x, t, h, s.Tolerance)
		if err != nil {
			return nil, err
		}
		x = next
		if last && taken == remaining {
			t = t1
			break
		}
		t += taken
		h = suggested
	}
	return x, nil
}

// IntegrateMany returns x propagated from t0 to every target, in target
// order. Targets on each side of t0 are visited monotonically so the
// integration is never restarted from t0 for later epochs.
func IntegrateMany(dyn orbit.System, newInteg func() orbit.Integrator, x orbit.State, t0 float64, targets []float64, s Settings) ([]orbit.State, error) {
	out := make([]orbit.State, len(targets))

	order := make([]int, len(targets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return targets[order[a]] < targets[order[b]]
	})

	var backward, forward []int
	for _, idx := range order {
		if targets[idx] < t0 {
			backward = append(backward, idx)
		} else {
			forward = append(forward, idx)
		}
	}
	for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
		backward[i], backward[j] = backward[j], backward[i]
	}

	for _, leg := range [][]int{forward, backward} {
		integ := newInteg()
		cur, t := x, t0
		for _, idx := range leg {
			next, err := Integrate(dyn, integ, cur, t, targets[idx], s)
			if err != nil {
				return nil, err
			}
			out[idx] = next
			cur, t = next, targets[idx]
		}
	}
	return out, nil
}
