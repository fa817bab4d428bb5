package models

import (
	"fmt"

	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/history"
	"github.com/kartoza/home-advisor/internal/housing"
)

// SetpointRequest asks for a thermostat recommendation
type SetpointRequest struct {
	Temperature *float64 `json:"temperature"`
	Hour        *float64 `json:"hour"`
}

// PriceRequest carries the price form. Yes/no fields take "yes" or "no".
type PriceRequest struct {
	Area            float64 `json:"area"`
	Bedrooms        int     `json:"bedrooms"`
	Bathrooms       int     `json:"bathrooms"`
	Stories         int     `json:"stories"`
	Parking         int     `json:"parking"`
	MainRoad        string  `json:"mainroad"`
	GuestRoom       string  `json:"guestroom"`
	Basement        string  `json:"basement"`
	HotWaterHeating string  `json:"hotwaterheating"`
	AirConditioning string  `json:"airconditioning"`
	PrefArea        string  `json:"prefarea"`
	Furnishing      string  `json:"furnishing"`
}

// Listing converts the request into a validated listing
func (r PriceRequest) Listing() (housing.Listing, error) {
	l := housing.Listing{
		Area:       r.Area,
		Bedrooms:   r.Bedrooms,
		Bathrooms:  r.Bathrooms,
		Stories:    r.Stories,
		Parking:    r.Parking,
		Furnishing: r.Furnishing,
	}
	binary := map[string]string{
		"mainroad":        r.MainRoad,
		"guestroom":       r.GuestRoom,
		"basement":        r.Basement,
		"hotwaterheating": r.HotWaterHeating,
		"airconditioning": r.AirConditioning,
		"prefarea":        r.PrefArea,
	}
	for _, field := range housing.BinaryFields {
		v, err := housing.ParseYesNo(binary[field])
		if err != nil {
			return housing.Listing{}, fmt.Errorf("%s: %w", field, err)
		}
		if err := l.SetBinary(field, v); err != nil {
			return housing.Listing{}, err
		}
	}
	if err := l.Validate(); err != nil {
		return housing.Listing{}, err
	}
	return l, nil
}

// PriceRequestFromListing is the inverse of Listing
func PriceRequestFromListing(l housing.Listing) PriceRequest {
	return PriceRequest{
		Area:            l.Area,
		Bedrooms:        l.Bedrooms,
		Bathrooms:       l.Bathrooms,
		Stories:         l.Stories,
		Parking:         l.Parking,
		MainRoad:        housing.YesNo(l.MainRoad),
		GuestRoom:       housing.YesNo(l.GuestRoom),
		Basement:        housing.YesNo(l.Basement),
		HotWaterHeating: housing.YesNo(l.HotWaterHeating),
		AirConditioning: housing.YesNo(l.AirConditioning),
		PrefArea:        housing.YesNo(l.PrefArea),
		Furnishing:      l.Furnishing,
	}
}

// PriceResponse is the result of a price prediction. Prediction is absent
// when a guarded failure produced Message instead.
type PriceResponse struct {
	Prediction *float64           `json:"prediction,omitempty"`
	Message    string             `json:"message,omitempty"`
	Columns    []string           `json:"columns,omitempty"`
	Input      map[string]float64 `json:"input,omitempty"`
	EntryID    string             `json:"entry_id,omitempty"`
}

// HistoryResponse lists a session's predictions in order
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// FieldSchema describes one form field
type FieldSchema struct {
	Name    string        `json:"name"`
	Kind    string        `json:"kind"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Default interface{}   `json:"default"`
	Options []interface{} `json:"options,omitempty"`
}

// SchemaResponse describes the price form and the columns it encodes into
type SchemaResponse struct {
	Fields       []FieldSchema `json:"fields"`
	Encoding     string        `json:"encoding"`
	ColumnSource string        `json:"column_source"`
	ErrorGuard   bool          `json:"error_guard"`
	Columns      []string      `json:"columns,omitempty"`
	ColumnsError string        `json:"columns_error,omitempty"`
}

// ModelInstallRequest points at an artifact to install
type ModelInstallRequest struct {
	Path string `json:"path"`
}

// ModelStatusResponse reports the active artifact
type ModelStatusResponse struct {
	Loaded      bool         `json:"loaded"`
	Model       *forest.Info `json:"model,omitempty"`
	Reloads     uint64       `json:"reloads"`
	InstalledAt string       `json:"installed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}
