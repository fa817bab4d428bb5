package fuzzy

// centroid returns the centre of area of the piecewise-linear membership
// curve through (xs, ys). Each segment contributes its trapezoid (or
// triangle, or rectangle) area at that shape's own centroid.
func centroid(xs, ys []float64) (float64, error) {
	if len(xs) == 1 {
		if ys[0] == 0 {
			return 0, ErrNoActivation
		}
		return xs[0], nil
	}

	var sumMoment, sumArea float64
	for i := 1; i < len(xs); i++ {
		x1, x2 := xs[i-1], xs[i]
		y1, y2 := ys[i-1], ys[i]
		if (y1 == 0 && y2 == 0) || x1 == x2 {
			continue
		}

		var moment, area float64
		switch {
		case y1 == y2:
			moment = 0.5 * (x1 + x2)
			area = (x2 - x1) * y1
		case y1 == 0:
			moment = 2.0/3.0*(x2-x1) + x1
			area = 0.5 * (x2 - x1) * y2
		case y2 == 0:
			moment = 1.0/3.0*(x2-x1) + x1
			area = 0.5 * (x2 - x1) * y1
		default:
			moment = (2.0/3.0*(x2-x1)*(y2+0.5*y1))/(y1+y2) + x1
			area = 0.5 * (x2 - x1) * (y1 + y2)
		}
		sumMoment += moment * area
		sumArea += area
	}

	if sumArea == 0 {
		return 0, ErrNoActivation
	}
	return sumMoment / sumArea, nil
}
