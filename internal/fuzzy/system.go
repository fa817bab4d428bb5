package fuzzy

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoActivation is returned when no rule contributes to an output, so
	// the aggregated fuzzy set has zero area and no centroid.
	ErrNoActivation = errors.New("fuzzy: no rule activated the output")
	// ErrMissingInput is returned when an antecedent variable has no value.
	ErrMissingInput = errors.New("fuzzy: missing input")
	// ErrUnknownInput is returned for inputs no rule refers to.
	ErrUnknownInput = errors.New("fuzzy: unknown input")
)

// System is an immutable set of rules over input and output variables.
// Compute is safe for concurrent use.
type System struct {
	rules   []Rule
	inputs  []*Variable
	outputs []*Variable
}

// Result is the outcome of one inference pass
type Result struct {
	// Outputs holds the defuzzified value per output variable.
	Outputs map[string]float64
	// Activations holds the firing strength of each rule, in rule order.
	Activations []float64
	// Memberships holds input variable -> term -> degree.
	Memberships map[string]map[string]float64
}

// NewSystem validates the rules and collects their variables.
func NewSystem(rules ...Rule) (*System, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("fuzzy: a system needs at least one rule")
	}

	s := &System{rules: make([]Rule, len(rules))}
	copy(s.rules, rules)

	seenIn := make(map[string]*Variable)
	seenOut := make(map[string]*Variable)
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("fuzzy: %w", err)
		}
		for _, v := range r.If.variables() {
			if prev, ok := seenIn[v.Name]; ok && prev != v {
				return nil, fmt.Errorf("fuzzy: two input variables named %q", v.Name)
			}
			if _, ok := seenIn[v.Name]; !ok {
				seenIn[v.Name] = v
				s.inputs = append(s.inputs, v)
			}
		}
		if prev, ok := seenOut[r.Then.Name]; ok && prev != r.Then {
			return nil, fmt.Errorf("fuzzy: two output variables named %q", r.Then.Name)
		}
		if _, ok := seenOut[r.Then.Name]; !ok {
			seenOut[r.Then.Name] = r.Then
			s.outputs = append(s.outputs, r.Then)
		}
	}
	for name := range seenIn {
		if _, ok := seenOut[name]; ok {
			return nil, fmt.Errorf("fuzzy: variable %q is both input and output", name)
		}
	}
	return s, nil
}

// Rules returns the rules in evaluation order
func (s *System) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Inputs returns the antecedent variables
func (s *System) Inputs() []*Variable { return append([]*Variable(nil), s.inputs...) }

// Compute runs inference for the given crisp inputs. Inputs outside a
// variable's universe are clipped to its bounds.
func (s *System) Compute(inputs map[string]float64) (*Result, error) {
	known := make(map[string]bool, len(s.inputs))
	for _, v := range s.inputs {
		known[v.Name] = true
	}
	for name := range inputs {
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInput, name)
		}
	}

	m := make(memberships, len(s.inputs))
	for _, v := range s.inputs {
		x, ok := inputs[v.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingInput, v.Name)
		}
		if math.IsNaN(x) {
			return nil, fmt.Errorf("fuzzy: input %q is NaN", v.Name)
		}
		m[v.Name] = v.fuzzify(v.Clip(x))
	}

	res := &Result{
		Outputs:     make(map[string]float64, len(s.outputs)),
		Activations: make([]float64, len(s.rules)),
		Memberships: m,
	}

	// Accumulate rule strengths per consequent term with max.
	cuts := make(map[*Variable]map[string]float64, len(s.outputs))
	for i, r := range s.rules {
		a := r.If.degree(m)
		res.Activations[i] = a
		tc, ok := cuts[r.Then]
		if !ok {
			tc = make(map[string]float64)
			cuts[r.Then] = tc
		}
		tc[r.ThenLabel] = math.Max(tc[r.ThenLabel], a)
	}

	for _, out := range s.outputs {
		xs, ys := aggregate(out, cuts[out])
		v, err := centroid(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("%w %q", err, out.Name)
		}
		res.Outputs[out.Name] = v
	}
	return res, nil
}

// aggregate clips each cut term of v at its activation and unions them with
// max over a universe upsampled with every cut crossing point.
func aggregate(v *Variable, cuts map[string]float64) ([]float64, []float64) {
	points := append([]float64(nil), v.Universe...)
	for _, t := range v.terms {
		cut, ok := cuts[t.Label]
		if !ok {
			continue
		}
		points = append(points, crossings(v.Universe, t.samples, cut)...)
	}
	sort.Float64s(points)
	xs := points[:0]
	for i, p := range points {
		if i == 0 || p != points[i-1] {
			xs = append(xs, p)
		}
	}

	ys := make([]float64, len(xs))
	for _, t := range v.terms {
		cut, ok := cuts[t.Label]
		if !ok {
			continue
		}
		for i, x := range xs {
			mu := math.Min(cut, interp(x, v.Universe, t.samples))
			if mu > ys[i] {
				ys[i] = mu
			}
		}
	}
	return xs, ys
}
