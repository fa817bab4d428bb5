package housing

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/history"
)

// ModelSource provides the active price model
type ModelSource interface {
	Get() (*forest.Model, error)
}

// Options configures a Predictor
type Options struct {
	Encoding Encoding
	Columns  ColumnSource
	// Order overrides the declared order for the encoding
	Order []string
	// ErrorGuard turns prediction failures into a displayed message
	ErrorGuard bool
}

// Predictor encodes listings, runs the price model and records the result
type Predictor struct {
	encoder Encoder
	columns ColumnSource
	order   []string
	guard   bool
	models  ModelSource
	history history.Store
}

// Outcome is the result of one Predict call
type Outcome struct {
	Prediction float64        `json:"prediction"`
	Record     Record         `json:"record"`
	Columns    []string       `json:"columns"`
	Entry      *history.Entry `json:"entry,omitempty"`
	// Message is set instead of a prediction when a guarded call fails
	Message string `json:"message,omitempty"`
}

// Failed reports whether a guarded call collapsed an error into Message
func (o *Outcome) Failed() bool {
	return o.Message != ""
}

// NewPredictor validates the options and builds a predictor
func NewPredictor(opts Options, models ModelSource, store history.Store) (*Predictor, error) {
	if _, err := ParseEncoding(string(opts.Encoding)); err != nil {
		return nil, err
	}
	if _, err := ParseColumnSource(string(opts.Columns)); err != nil {
		return nil, err
	}
	if models == nil || store == nil {
		return nil, fmt.Errorf("predictor needs a model source and a history store")
	}

	order := opts.Order
	if len(order) == 0 {
		order = DeclaredOrder(opts.Encoding)
	}
	return &Predictor{
		encoder: Encoder{Encoding: opts.Encoding},
		columns: opts.Columns,
		order:   append([]string(nil), order...),
		guard:   opts.ErrorGuard,
		models:  models,
		history: store,
	}, nil
}

// Encoding returns the configured indicator encoding
func (p *Predictor) Encoding() Encoding { return p.encoder.Encoding }

// ColumnSource returns where expected columns come from
func (p *Predictor) ColumnSource() ColumnSource { return p.columns }

// ErrorGuard reports whether failures are collapsed into a message
func (p *Predictor) ErrorGuard() bool { return p.guard }

// ExpectedColumns returns the column order the next prediction will use
func (p *Predictor) ExpectedColumns() ([]string, error) {
	if p.columns == ColumnsDeclared {
		return append([]string(nil), p.order...), nil
	}
	m, err := p.models.Get()
	if err != nil {
		return nil, err
	}
	return p.columnsFor(m)
}

func (p *Predictor) columnsFor(m *forest.Model) ([]string, error) {
	if p.columns == ColumnsDeclared {
		return p.order, nil
	}
	names := m.FeatureNames()
	if names == nil {
		return nil, fmt.Errorf("%w: model records no feature names", forest.ErrColumnMismatch)
	}
	return names, nil
}

// Predict estimates the price of a listing and appends it to the session
// history. An invalid listing is always an error. With the error guard on,
// any later failure is returned as an Outcome carrying only Message and the
// history is left untouched.
func (p *Predictor) Predict(session string, l Listing) (*Outcome, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	out, err := p.predict(session, l)
	if err != nil {
		if !p.guard {
			return nil, err
		}
		log.Warn().Err(err).Str("session", session).Msg("Prediction failed")
		return &Outcome{Message: "Error during prediction: " + err.Error()}, nil
	}
	return out, nil
}

func (p *Predictor) predict(session string, l Listing) (*Outcome, error) {
	record := p.encoder.Encode(l)

	m, err := p.models.Get()
	if err != nil {
		return nil, err
	}
	order, err := p.columnsFor(m)
	if err != nil {
		return nil, err
	}
	frame, err := Align(record, order, p.columns == ColumnsModel)
	if err != nil {
		return nil, err
	}

	values, err := m.Predict(frame)
	if err != nil {
		return nil, err
	}

	entry, err := p.history.Append(session, history.Entry{Input: record, Prediction: values[0]})
	if err != nil {
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	log.Debug().Str("session", session).Float64("prediction", values[0]).Msg("Price predicted")
	return &Outcome{
		Prediction: values[0],
		Record:     record,
		Columns:    frame.Columns,
		Entry:      &entry,
	}, nil
}
