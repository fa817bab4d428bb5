// Package climate recommends a thermostat setpoint from the room temperature
// and the hour of the day.
package climate

import (
	"fmt"

	"github.com/kartoza/home-advisor/internal/fuzzy"
)

// Bounds of the controller inputs
const (
	MinTemperature = 16
	MaxTemperature = 30
	MinHour        = 0
	MaxHour        = 23

	DefaultTemperature = 22
	DefaultHour        = 14
)

// Variable names used as fuzzy inputs and output
const (
	VarTemperature = "temperature"
	VarTimeOfDay   = "time_of_day"
	VarSetpoint    = "setpoint"
)

// Controller wraps the static fuzzy system. It is read-only after
// construction and safe for concurrent use.
type Controller struct {
	system *fuzzy.System
}

// RuleActivation reports how strongly one rule fired
type RuleActivation struct {
	Rule     string  `json:"rule"`
	Strength float64 `json:"strength"`
}

// Recommendation is the result of one setpoint computation
type Recommendation struct {
	Temperature float64          `json:"temperature"`
	Hour        float64          `json:"hour"`
	Setpoint    float64          `json:"setpoint"`
	Preference  string           `json:"preference"`
	Rules       []RuleActivation `json:"rules"`
}

type termDef struct {
	label   string
	a, b, c float64
}

func newVariable(name string, lo, hi float64, terms []termDef) (*fuzzy.Variable, error) {
	u, err := fuzzy.NewUniverse(lo, hi, 1)
	if err != nil {
		return nil, err
	}
	v, err := fuzzy.NewVariable(name, u)
	if err != nil {
		return nil, err
	}
	for _, t := range terms {
		if err := v.AddTerm(t.label, fuzzy.Trimf{A: t.a, B: t.b, C: t.c}); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NewController builds the four-rule setpoint system
func NewController() (*Controller, error) {
	temperature, err := newVariable(VarTemperature, MinTemperature, MaxTemperature, []termDef{
		{"cold", 16, 16, 20},
		{"cool", 18, 21, 24},
		{"warm", 22, 25, 28},
		{"hot", 26, 30, 30},
	})
	if err != nil {
		return nil, fmt.Errorf("temperature variable: %w", err)
	}

	timeOfDay, err := newVariable(VarTimeOfDay, MinHour, MaxHour, []termDef{
		{"morning", 5, 8, 11},
		{"afternoon", 12, 15, 18},
		{"night", 19, 22, 24},
	})
	if err != nil {
		return nil, fmt.Errorf("time_of_day variable: %w", err)
	}

	setpoint, err := newVariable(VarSetpoint, MinTemperature, MaxTemperature, []termDef{
		{"cool", 16, 18, 21},
		{"comfortable", 20, 23, 26},
		{"warm", 24, 27, 30},
	})
	if err != nil {
		return nil, fmt.Errorf("setpoint variable: %w", err)
	}

	system, err := fuzzy.NewSystem(
		fuzzy.NewRule("cold-morning", fuzzy.And(fuzzy.Is(temperature, "cold"), fuzzy.Is(timeOfDay, "morning")), setpoint, "warm"),
		fuzzy.NewRule("cool-afternoon", fuzzy.And(fuzzy.Is(temperature, "cool"), fuzzy.Is(timeOfDay, "afternoon")), setpoint, "comfortable"),
		fuzzy.NewRule("warm-night", fuzzy.And(fuzzy.Is(temperature, "warm"), fuzzy.Is(timeOfDay, "night")), setpoint, "cool"),
		fuzzy.NewRule("hot", fuzzy.Is(temperature, "hot"), setpoint, "cool"),
	)
	if err != nil {
		return nil, err
	}
	return &Controller{system: system}, nil
}

// Recommend computes the defuzzified setpoint for the given temperature and
// hour. Inputs outside the universes are clipped by the fuzzy system; a
// combination that fires no rule yields fuzzy.ErrNoActivation.
func (c *Controller) Recommend(temperature, hour float64) (*Recommendation, error) {
	res, err := c.system.Compute(map[string]float64{
		VarTemperature: temperature,
		VarTimeOfDay:   hour,
	})
	if err != nil {
		return nil, err
	}

	rules := c.system.Rules()
	activations := make([]RuleActivation, len(rules))
	for i, r := range rules {
		activations[i] = RuleActivation{Rule: r.String(), Strength: res.Activations[i]}
	}

	return &Recommendation{
		Temperature: temperature,
		Hour:        hour,
		Setpoint:    res.Outputs[VarSetpoint],
		Preference:  PredictPreference(int(hour)),
		Rules:       activations,
	}, nil
}

// PredictPreference is an hour-of-day lookup independent of the fuzzy
// result: 5-11 warm, 12-17 comfortable, otherwise cool.
func PredictPreference(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "warm"
	case hour >= 12 && hour <= 17:
		return "comfortable"
	default:
		return "cool"
	}
}

// ValidateInputs checks that temperature and hour are within the form bounds
func ValidateInputs(temperature, hour float64) error {
	if temperature < MinTemperature || temperature > MaxTemperature {
		return fmt.Errorf("temperature %g outside [%d, %d]", temperature, MinTemperature, MaxTemperature)
	}
	if hour < MinHour || hour > MaxHour {
		return fmt.Errorf("hour %g outside [%d, %d]", hour, MinHour, MaxHour)
	}
	return nil
}
