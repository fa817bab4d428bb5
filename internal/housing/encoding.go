package housing

import (
	"fmt"

	"github.com/kartoza/home-advisor/internal/forest"
)

// Encoding selects how yes/no fields become indicator columns
type Encoding string

const (
	// EncodingPaired emits <field>_no and <field>_yes for every yes/no field
	EncodingPaired Encoding = "paired"
	// EncodingYesOnly emits only <field>_yes
	EncodingYesOnly Encoding = "yes-only"
)

// ColumnSource selects where the expected column order comes from
type ColumnSource string

const (
	// ColumnsDeclared uses a fixed, hand-listed order
	ColumnsDeclared ColumnSource = "declared"
	// ColumnsModel uses the feature names recorded in the model artifact
	ColumnsModel ColumnSource = "model"
)

const furnishingPrefix = "furnishingstatus_"

var numericFields = []string{"area", "bedrooms", "bathrooms", "stories", "parking"}

// Record maps a feature name to its value
type Record map[string]float64

// ParseEncoding validates an encoding name
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingPaired, EncodingYesOnly:
		return Encoding(s), nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want %q or %q)", s, EncodingPaired, EncodingYesOnly)
	}
}

// ParseColumnSource validates a column source name
func ParseColumnSource(s string) (ColumnSource, error) {
	switch ColumnSource(s) {
	case ColumnsDeclared, ColumnsModel:
		return ColumnSource(s), nil
	default:
		return "", fmt.Errorf("unknown column source %q (want %q or %q)", s, ColumnsDeclared, ColumnsModel)
	}
}

// DeclaredOrder returns the training column order for an encoding
func DeclaredOrder(enc Encoding) []string {
	order := append([]string(nil), numericFields...)
	for _, f := range BinaryFields {
		if enc == EncodingPaired {
			order = append(order, f+"_no")
		}
		order = append(order, f+"_yes")
	}
	for _, f := range FurnishingOptions {
		order = append(order, furnishingPrefix+f)
	}
	return order
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Encoder converts listings into records
type Encoder struct {
	Encoding Encoding
}

// Encode builds the feature record for a listing
func (e Encoder) Encode(l Listing) Record {
	r := Record{
		"area":      l.Area,
		"bedrooms":  float64(l.Bedrooms),
		"bathrooms": float64(l.Bathrooms),
		"stories":   float64(l.Stories),
		"parking":   float64(l.Parking),
	}
	for field, v := range l.Binary() {
		r[field+"_yes"] = indicator(v)
		if e.Encoding == EncodingPaired {
			r[field+"_no"] = indicator(!v)
		}
	}
	for _, f := range FurnishingOptions {
		r[furnishingPrefix+f] = indicator(l.Furnishing == f)
	}
	return r
}

// Align lays a record out as a single-row frame in exactly the given column
// order. With backfill, columns absent from the record are zero and record
// keys outside the order are dropped. Without it the record must cover the
// order exactly.
func Align(r Record, order []string, backfill bool) (forest.Frame, error) {
	if !backfill && len(r) != len(order) {
		return forest.Frame{}, fmt.Errorf("%w: record has %d columns, order has %d", forest.ErrColumnMismatch, len(r), len(order))
	}
	row := make([]float64, 0, len(order))
	for _, name := range order {
		v, ok := r[name]
		if !ok && !backfill {
			return forest.Frame{}, fmt.Errorf("%w: record has no column %q", forest.ErrColumnMismatch, name)
		}
		row = append(row, v)
	}
	return forest.Frame{Columns: append([]string(nil), order...), Rows: [][]float64{row}}, nil
}
