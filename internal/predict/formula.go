package predict

import "math"

// safeDiv divides as the symbolic-regression trainer did: a zero
// denominator yields the numerator unchanged.
func safeDiv(x, y float64) float64 {
	if y == 0 {
		return x
	}
	return x / y
}

// OverlapForHold estimates, in milliseconds, the minimum time the tap-hold
// key and an opposite-side second key must be simultaneously down for the
// user to have meant a hold. The expression was found by symbolic
// regression over the training data; the engine clamps the result to its
// configured envelope.
func OverlapForHold(f Features) uint16 {
	p2s := f.PressToSecondPressDur

	a := p2s * safeDiv(20145.72453837935,
		20145.72453837935-(f.PrevPressToPTHPressDur-f.PrevPrevOverlapDur)*p2s)

	b := safeDiv(20141.63979839019-((f.PrevPressToPTHPressDur-2.0*f.PrevPrevOverlapDur)-f.PrevPrevOverlapDur)*10.24699665838974,
		p2s) - 32.559018051648636

	return uint16(math.Abs(math.Max(a, b)))
}

// FastStreakTap is the default fast-streak estimator. Against the training
// data it marked 7.49 percent of tap-holds as taps, with 0.66 percent of
// the data mispredicted.
func FastStreakTap(f Features) float64 {
	s := f.PrevPrevOverlapDur - f.PrevPressToPTHPressDur
	return math.Abs(safeDiv(s, 4.280551301886473-f.PrevPressToPTHPressDur))
}

// FastStreakTapConservative marks fewer taps (3.46 percent) with fewer
// mispredictions (0.29 percent).
func FastStreakTapConservative(f Features) float64 {
	s := f.PrevPrevOverlapDur - f.PrevPressToPTHPressDur
	return math.Abs(safeDiv(s, s+5.3131340976019885*f.OverlapWAvg))
}
