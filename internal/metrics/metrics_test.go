package metrics

import (
	"bytes"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/home-advisor/internal/forest"
)

func parse(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)
	return mfs
}

func TestCounters(t *testing.T) {
	m := New(nil)
	m.SetpointRequested()
	m.SetpointRequested()
	m.Predicted(OutcomeOK)
	m.Predicted(OutcomeOK)
	m.Predicted(OutcomeGuarded)

	mfs := parse(t, m)

	require.Contains(t, mfs, "home_advisor_setpoint_requests_total")
	assert.Equal(t, 2.0, mfs["home_advisor_setpoint_requests_total"].GetMetric()[0].GetCounter().GetValue())

	preds := mfs["home_advisor_predictions_total"]
	require.NotNil(t, preds)
	byOutcome := map[string]float64{}
	for _, metric := range preds.GetMetric() {
		byOutcome[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"ok": 2, "guarded": 1}, byOutcome)

	assert.NotContains(t, mfs, "home_advisor_model_trees")
}

func TestModelFamilies(t *testing.T) {
	h := forest.NewHolder(nil)
	m := New(h)

	mfs := parse(t, m)
	assert.Equal(t, 0.0, mfs["home_advisor_model_trees"].GetMetric()[0].GetGauge().GetValue())

	model, err := forest.New(forest.Artifact{
		Format:    forest.FormatV1,
		NFeatures: 1,
		Trees: []forest.Tree{{
			ChildrenLeft:  []int{-1},
			ChildrenRight: []int{-1},
			Feature:       []int{-2},
			Threshold:     []float64{-2},
			Value:         []float64{1},
		}},
	})
	require.NoError(t, err)
	h.Swap(model)

	mfs = parse(t, m)
	assert.Equal(t, 1.0, mfs["home_advisor_model_trees"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 1.0, mfs["home_advisor_model_reloads_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestContentType(t *testing.T) {
	assert.Contains(t, ContentType, "text/plain")
}
