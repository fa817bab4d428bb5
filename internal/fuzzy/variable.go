package fuzzy

import "fmt"

// Term is one linguistic label of a variable together with its membership
// function sampled over the variable's universe.
type Term struct {
	Label   string
	MF      MembershipFunc
	samples []float64
}

// Variable is a linguistic variable over a sampled universe.
type Variable struct {
	Name     string
	Universe []float64

	terms []*Term
	index map[string]*Term
}

type validator interface {
	Validate() error
}

// NewVariable creates a variable over a non-empty, increasing universe
func NewVariable(name string, universe []float64) (*Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("variable name is required")
	}
	if len(universe) == 0 {
		return nil, fmt.Errorf("variable %q: empty universe", name)
	}
	for i := 1; i < len(universe); i++ {
		if universe[i] <= universe[i-1] {
			return nil, fmt.Errorf("variable %q: universe must be strictly increasing", name)
		}
	}
	u := make([]float64, len(universe))
	copy(u, universe)
	return &Variable{Name: name, Universe: u, index: make(map[string]*Term)}, nil
}

// AddTerm registers a labelled membership function on the variable
func (v *Variable) AddTerm(label string, mf MembershipFunc) error {
	if _, exists := v.index[label]; exists {
		return fmt.Errorf("variable %q: duplicate term %q", v.Name, label)
	}
	if val, ok := mf.(validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("variable %q term %q: %w", v.Name, label, err)
		}
	}

	samples := make([]float64, len(v.Universe))
	for i, x := range v.Universe {
		samples[i] = mf.Eval(x)
	}
	t := &Term{Label: label, MF: mf, samples: samples}
	v.terms = append(v.terms, t)
	v.index[label] = t
	return nil
}

// Term looks up a term by label
func (v *Variable) Term(label string) (*Term, bool) {
	t, ok := v.index[label]
	return t, ok
}

// Terms returns the terms in registration order
func (v *Variable) Terms() []*Term {
	out := make([]*Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// Min is the lower bound of the universe
func (v *Variable) Min() float64 { return v.Universe[0] }

// Max is the upper bound of the universe
func (v *Variable) Max() float64 { return v.Universe[len(v.Universe)-1] }

// Clip bounds x to the universe
func (v *Variable) Clip(x float64) float64 {
	if x < v.Min() {
		return v.Min()
	}
	if x > v.Max() {
		return v.Max()
	}
	return x
}

// Membership interpolates the sampled membership of term at x
func (v *Variable) Membership(t *Term, x float64) float64 {
	return interp(x, v.Universe, t.samples)
}

// fuzzify returns the membership of x in every term
func (v *Variable) fuzzify(x float64) map[string]float64 {
	out := make(map[string]float64, len(v.terms))
	for _, t := range v.terms {
		out[t.Label] = v.Membership(t, x)
	}
	return out
}
