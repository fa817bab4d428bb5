// Package fuzzy implements Mamdani-style fuzzy inference: sampled linguistic
// variables, min/max rule evaluation and centroid defuzzification.
package fuzzy

import (
	"fmt"
	"math"
)

// MembershipFunc maps a crisp value to a membership degree in [0, 1]
type MembershipFunc interface {
	Eval(x float64) float64
}

// Trimf is a triangular membership function with feet A, C and peak B.
// A == B or B == C gives a shoulder.
type Trimf struct {
	A, B, C float64
}

// Eval returns the triangular membership of x
func (t Trimf) Eval(x float64) float64 {
	switch {
	case x == t.B:
		return 1
	case t.A != t.B && t.A < x && x < t.B:
		return (x - t.A) / (t.B - t.A)
	case t.B != t.C && t.B < x && x < t.C:
		return (t.C - x) / (t.C - t.B)
	default:
		return 0
	}
}

// Validate checks that the vertices are ordered
func (t Trimf) Validate() error {
	if !(t.A <= t.B && t.B <= t.C) {
		return fmt.Errorf("trimf requires a <= b <= c, got [%g %g %g]", t.A, t.B, t.C)
	}
	return nil
}

// Trapmf is a trapezoidal membership function rising on [A,B], flat on [B,C]
// and falling on [C,D].
type Trapmf struct {
	A, B, C, D float64
}

// Eval returns the trapezoidal membership of x
func (t Trapmf) Eval(x float64) float64 {
	switch {
	case x >= t.B && x <= t.C:
		return 1
	case x < t.B:
		return Trimf{t.A, t.B, t.B}.Eval(x)
	default:
		return Trimf{t.C, t.C, t.D}.Eval(x)
	}
}

// Validate checks that the vertices are ordered
func (t Trapmf) Validate() error {
	if !(t.A <= t.B && t.B <= t.C && t.C <= t.D) {
		return fmt.Errorf("trapmf requires a <= b <= c <= d, got [%g %g %g %g]", t.A, t.B, t.C, t.D)
	}
	return nil
}

// NewUniverse samples [lo, hi] inclusive at the given step.
func NewUniverse(lo, hi, step float64) ([]float64, error) {
	if step <= 0 || hi < lo {
		return nil, fmt.Errorf("invalid universe [%g, %g] step %g", lo, hi, step)
	}
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	u := make([]float64, n)
	for i := range u {
		u[i] = lo + float64(i)*step
	}
	return u, nil
}

// interp linearly interpolates (xp, fp) at x, clamping outside the range.
// xp must be increasing.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 {
		return 0
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	if xp[hi] == xp[lo] {
		return fp[lo]
	}
	return fp[lo] + (x-xp[lo])*(fp[hi]-fp[lo])/(xp[hi]-xp[lo])
}

// crossings returns the x positions where the sampled curve (xs, ys) crosses
// level y. A zero level adds nothing.
func crossings(xs, ys []float64, y float64) []float64 {
	if y <= 0 {
		return nil
	}
	var out []float64
	for i := 0; i+1 < len(xs); i++ {
		above0 := ys[i] >= y
		above1 := ys[i+1] >= y
		if above0 == above1 || ys[i+1] == ys[i] {
			continue
		}
		out = append(out, xs[i]+(y-ys[i])*(xs[i+1]-xs[i])/(ys[i+1]-ys[i]))
	}
	return out
}
