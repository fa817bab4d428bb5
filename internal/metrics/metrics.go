// Package metrics keeps in-process counters and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/kartoza/home-advisor/internal/forest"
)

// Prediction outcomes
const (
	OutcomeOK      = "ok"
	OutcomeGuarded = "guarded"
	OutcomeError   = "error"
)

// ContentType is the exposition content type served on /metrics
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// ModelSource reports on the active model
type ModelSource interface {
	Get() (*forest.Model, error)
	Reloads() uint64
}

// Metrics holds the application counters. The zero value is not usable; use
// New.
type Metrics struct {
	setpointRequests atomic.Uint64

	mu          sync.Mutex
	predictions map[string]uint64

	models ModelSource
}

// New creates the counters. models may be nil.
func New(models ModelSource) *Metrics {
	return &Metrics{
		predictions: make(map[string]uint64),
		models:      models,
	}
}

// SetpointRequested counts one setpoint computation
func (m *Metrics) SetpointRequested() {
	m.setpointRequests.Add(1)
}

// Predicted counts one price prediction by outcome
func (m *Metrics) Predicted(outcome string) {
	m.mu.Lock()
	m.predictions[outcome]++
	m.mu.Unlock()
}

func ptr[T any](v T) *T { return &v }

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: ptr(name),
		Help: ptr(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{
			{Counter: &dto.Counter{Value: ptr(v)}},
		},
	}
}

// Families snapshots the counters as metric families sorted by name
func (m *Metrics) Families() []*dto.MetricFamily {
	families := []*dto.MetricFamily{
		counter("home_advisor_setpoint_requests_total", "Setpoint recommendations computed.",
			float64(m.setpointRequests.Load())),
	}

	m.mu.Lock()
	outcomes := make([]string, 0, len(m.predictions))
	for o := range m.predictions {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	predictions := &dto.MetricFamily{
		Name: ptr("home_advisor_predictions_total"),
		Help: ptr("Price predictions by outcome."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, o := range outcomes {
		predictions.Metric = append(predictions.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr("outcome"), Value: ptr(o)}},
			Counter: &dto.Counter{Value: ptr(float64(m.predictions[o]))},
		})
	}
	m.mu.Unlock()
	if len(predictions.Metric) > 0 {
		families = append(families, predictions)
	}

	if m.models != nil {
		var trees float64
		if model, err := m.models.Get(); err == nil {
			trees = float64(model.Info().Trees)
		}
		families = append(families,
			&dto.MetricFamily{
				Name:   ptr("home_advisor_model_trees"),
				Help:   ptr("Trees in the active price model."),
				Type:   dto.MetricType_GAUGE.Enum(),
				Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(trees)}}},
			},
			counter("home_advisor_model_reloads_total", "Price model swaps since start.",
				float64(m.models.Reloads())),
		)
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families
}

// Write renders every family in the text exposition format
func (m *Metrics) Write(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range m.Families() {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
