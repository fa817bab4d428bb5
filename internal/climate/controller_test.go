package climate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/home-advisor/internal/fuzzy"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController()
	require.NoError(t, err)
	return c
}

func TestRecommendDefaults(t *testing.T) {
	c := newTestController(t)

	rec, err := c.Recommend(DefaultTemperature, DefaultHour)
	require.NoError(t, err)
	assert.InDelta(t, 23.0, rec.Setpoint, 1e-9)
	assert.Equal(t, "comfortable", rec.Preference)
	require.Len(t, rec.Rules, 4)
	assert.InDelta(t, 2.0/3.0, rec.Rules[1].Strength, 1e-9)
	assert.Equal(t, 0.0, rec.Rules[0].Strength)
}

func TestRecommendHotIsCoolAtEveryHour(t *testing.T) {
	c := newTestController(t)
	coolCentroid := (16.0 + 18.0 + 21.0) / 3.0
	warmCentroid := (24.0 + 27.0 + 30.0) / 3.0

	for hour := MinHour; hour <= MaxHour; hour++ {
		rec, err := c.Recommend(30, float64(hour))
		require.NoError(t, err, "hour %d", hour)
		assert.Less(t, math.Abs(rec.Setpoint-coolCentroid), math.Abs(rec.Setpoint-warmCentroid), "hour %d", hour)
		assert.InDelta(t, coolCentroid, rec.Setpoint, 1e-9, "hour %d", hour)
	}
}

func TestRecommendColdMorningIsWarm(t *testing.T) {
	c := newTestController(t)

	rec, err := c.Recommend(16, 8)
	require.NoError(t, err)
	assert.InDelta(t, (24.0+27.0+30.0)/3.0, rec.Setpoint, 1e-9)
	assert.Equal(t, "warm", rec.Preference)
}

func TestRecommendNoRuleFires(t *testing.T) {
	c := newTestController(t)

	_, err := c.Recommend(16, 14)
	assert.ErrorIs(t, err, fuzzy.ErrNoActivation)
}

func TestRecommendSetpointWithinUniverse(t *testing.T) {
	c := newTestController(t)

	for temp := MinTemperature; temp <= MaxTemperature; temp++ {
		for hour := MinHour; hour <= MaxHour; hour++ {
			rec, err := c.Recommend(float64(temp), float64(hour))
			if err != nil {
				assert.ErrorIs(t, err, fuzzy.ErrNoActivation)
				continue
			}
			assert.GreaterOrEqual(t, rec.Setpoint, float64(MinTemperature))
			assert.LessOrEqual(t, rec.Setpoint, float64(MaxTemperature))
		}
	}
}

func TestPredictPreference(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "cool"},
		{4, "cool"},
		{5, "warm"},
		{11, "warm"},
		{12, "comfortable"},
		{17, "comfortable"},
		{18, "cool"},
		{23, "cool"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PredictPreference(tt.hour), "hour %d", tt.hour)
	}
}

func TestValidateInputs(t *testing.T) {
	assert.NoError(t, ValidateInputs(16, 0))
	assert.NoError(t, ValidateInputs(30, 23))
	assert.Error(t, ValidateInputs(15.9, 10))
	assert.Error(t, ValidateInputs(31, 10))
	assert.Error(t, ValidateInputs(20, -1))
	assert.Error(t, ValidateInputs(20, 24))
}
