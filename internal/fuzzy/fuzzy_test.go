package fuzzy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimf(t *testing.T) {
	mf := Trimf{18, 21, 24}
	assert.Equal(t, 0.0, mf.Eval(18))
	assert.InDelta(t, 1.0/3.0, mf.Eval(19), 1e-12)
	assert.Equal(t, 1.0, mf.Eval(21))
	assert.InDelta(t, 2.0/3.0, mf.Eval(22), 1e-12)
	assert.Equal(t, 0.0, mf.Eval(24))
	assert.Equal(t, 0.0, mf.Eval(30))

	shoulder := Trimf{16, 16, 20}
	assert.Equal(t, 1.0, shoulder.Eval(16))
	assert.Equal(t, 0.5, shoulder.Eval(18))

	assert.Error(t, Trimf{3, 2, 1}.Validate())
}

func TestTrapmf(t *testing.T) {
	mf := Trapmf{0, 2, 4, 6}
	assert.Equal(t, 0.0, mf.Eval(0))
	assert.Equal(t, 0.5, mf.Eval(1))
	assert.Equal(t, 1.0, mf.Eval(3))
	assert.Equal(t, 0.5, mf.Eval(5))
	assert.Equal(t, 0.0, mf.Eval(7))
	assert.Error(t, Trapmf{0, 4, 2, 6}.Validate())
}

func TestNewUniverse(t *testing.T) {
	u, err := NewUniverse(16, 30, 1)
	require.NoError(t, err)
	assert.Len(t, u, 15)
	assert.Equal(t, 16.0, u[0])
	assert.Equal(t, 30.0, u[14])

	_, err = NewUniverse(0, 1, 0)
	assert.Error(t, err)
}

func TestInterpClamps(t *testing.T) {
	xp := []float64{0, 1, 2}
	fp := []float64{0, 1, 0}
	assert.Equal(t, 0.0, interp(-5, xp, fp))
	assert.Equal(t, 0.5, interp(0.5, xp, fp))
	assert.Equal(t, 0.5, interp(1.5, xp, fp))
	assert.Equal(t, 0.0, interp(9, xp, fp))
}

func TestCentroidTriangle(t *testing.T) {
	got, err := centroid([]float64{16, 18, 21}, []float64{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, (16.0+18.0+21.0)/3.0, got, 1e-9)
}

func TestCentroidZeroArea(t *testing.T) {
	_, err := centroid([]float64{0, 1, 2}, []float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrNoActivation)
}

func TestVariableDuplicateTerm(t *testing.T) {
	v, err := NewVariable("x", []float64{0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, v.AddTerm("low", Trimf{0, 0, 1}))
	assert.Error(t, v.AddTerm("low", Trimf{0, 1, 2}))
}

func TestNewVariableRejectsBadUniverse(t *testing.T) {
	_, err := NewVariable("x", nil)
	assert.Error(t, err)
	_, err = NewVariable("x", []float64{0, 2, 1})
	assert.Error(t, err)
	_, err = NewVariable("", []float64{0})
	assert.Error(t, err)
}

// twoRuleSystem has a single input "x" on [0,10] and output "y" on [0,10].
func twoRuleSystem(t *testing.T) (*System, *Variable, *Variable) {
	t.Helper()
	u, err := NewUniverse(0, 10, 1)
	require.NoError(t, err)

	x, err := NewVariable("x", u)
	require.NoError(t, err)
	require.NoError(t, x.AddTerm("low", Trimf{0, 0, 5}))
	require.NoError(t, x.AddTerm("high", Trimf{5, 10, 10}))

	y, err := NewVariable("y", u)
	require.NoError(t, err)
	require.NoError(t, y.AddTerm("small", Trimf{0, 2, 4}))
	require.NoError(t, y.AddTerm("large", Trimf{6, 8, 10}))

	s, err := NewSystem(
		NewRule("r1", Is(x, "low"), y, "small"),
		NewRule("r2", Is(x, "high"), y, "large"),
	)
	require.NoError(t, err)
	return s, x, y
}

func TestComputeSingleRule(t *testing.T) {
	s, _, _ := twoRuleSystem(t)

	res, err := s.Compute(map[string]float64{"x": 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Outputs["y"], 1e-9)
	assert.Equal(t, []float64{1, 0}, res.Activations)
}

func TestComputeClipsInputs(t *testing.T) {
	s, _, _ := twoRuleSystem(t)

	res, err := s.Compute(map[string]float64{"x": 42})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.Outputs["y"], 1e-9)
}

func TestComputeNoActivation(t *testing.T) {
	s, _, _ := twoRuleSystem(t)

	_, err := s.Compute(map[string]float64{"x": 5})
	assert.True(t, errors.Is(err, ErrNoActivation))
}

func TestComputeInputErrors(t *testing.T) {
	s, _, _ := twoRuleSystem(t)

	_, err := s.Compute(map[string]float64{})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = s.Compute(map[string]float64{"x": 1, "z": 2})
	assert.ErrorIs(t, err, ErrUnknownInput)
}

func TestComputeClippedAggregateCentroid(t *testing.T) {
	s, _, _ := twoRuleSystem(t)

	// x=2.5 -> low 0.5, high 0; small clipped at 0.5 is a symmetric
	// trapezoid around 2.
	res, err := s.Compute(map[string]float64{"x": 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Outputs["y"], 1e-9)
	assert.InDelta(t, 0.5, res.Activations[0], 1e-12)
}

func TestOperators(t *testing.T) {
	u, err := NewUniverse(0, 10, 1)
	require.NoError(t, err)
	a, err := NewVariable("a", u)
	require.NoError(t, err)
	require.NoError(t, a.AddTerm("mid", Trimf{0, 5, 10}))
	b, err := NewVariable("b", u)
	require.NoError(t, err)
	require.NoError(t, b.AddTerm("mid", Trimf{0, 5, 10}))

	m := memberships{
		"a": {"mid": 0.2},
		"b": {"mid": 0.7},
	}
	assert.Equal(t, 0.2, And(Is(a, "mid"), Is(b, "mid")).degree(m))
	assert.Equal(t, 0.7, Or(Is(a, "mid"), Is(b, "mid")).degree(m))
	assert.InDelta(t, 0.8, Not(Is(a, "mid")).degree(m), 1e-12)
	assert.Equal(t, "(a[mid] AND b[mid])", And(Is(a, "mid"), Is(b, "mid")).String())
}

func TestNewSystemValidation(t *testing.T) {
	_, err := NewSystem()
	assert.Error(t, err)

	u, _ := NewUniverse(0, 10, 1)
	x, _ := NewVariable("x", u)
	require.NoError(t, x.AddTerm("low", Trimf{0, 0, 5}))
	y, _ := NewVariable("y", u)
	require.NoError(t, y.AddTerm("small", Trimf{0, 2, 4}))

	_, err = NewSystem(NewRule("bad-if", Is(x, "missing"), y, "small"))
	assert.Error(t, err)

	_, err = NewSystem(NewRule("bad-then", Is(x, "low"), y, "missing"))
	assert.Error(t, err)

	_, err = NewSystem(NewRule("loop", Is(x, "low"), x, "low"))
	assert.Error(t, err)
}
