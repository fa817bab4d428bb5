// Package housing turns a house listing into the feature row a price model
// was trained on and records every estimate in a session history.
package housing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidListing is returned for form values outside the accepted ranges
var ErrInvalidListing = errors.New("housing: invalid listing")

// Form bounds
const (
	MinArea        = 200
	MaxArea        = 10000
	DefaultArea    = 1200
	MaxParking     = 5
	DefaultParking = 1
)

// Furnishing choices
const (
	Furnished     = "furnished"
	SemiFurnished = "semi-furnished"
	Unfurnished   = "unfurnished"
)

// FurnishingOptions lists the furnishing choices in form order
var FurnishingOptions = []string{Furnished, SemiFurnished, Unfurnished}

// BinaryFields lists the yes/no fields in form order
var BinaryFields = []string{"mainroad", "guestroom", "basement", "hotwaterheating", "airconditioning", "prefarea"}

// Allowed values for the select fields
var (
	BedroomOptions  = []int{1, 2, 3, 4, 5}
	BathroomOptions = []int{1, 2, 3}
	StoryOptions    = []int{1, 2, 3}
)

// Listing holds the values collected by the price form
type Listing struct {
	Area            float64 `json:"area"`
	Bedrooms        int     `json:"bedrooms"`
	Bathrooms       int     `json:"bathrooms"`
	Stories         int     `json:"stories"`
	Parking         int     `json:"parking"`
	MainRoad        bool    `json:"mainroad"`
	GuestRoom       bool    `json:"guestroom"`
	Basement        bool    `json:"basement"`
	HotWaterHeating bool    `json:"hotwaterheating"`
	AirConditioning bool    `json:"airconditioning"`
	PrefArea        bool    `json:"prefarea"`
	Furnishing      string  `json:"furnishing"`
}

// DefaultListing returns the form's initial values. Radio buttons default to
// their first option, "yes" and "furnished".
func DefaultListing() Listing {
	return Listing{
		Area:            DefaultArea,
		Bedrooms:        BedroomOptions[0],
		Bathrooms:       BathroomOptions[0],
		Stories:         StoryOptions[0],
		Parking:         DefaultParking,
		MainRoad:        true,
		GuestRoom:       true,
		Basement:        true,
		HotWaterHeating: true,
		AirConditioning: true,
		PrefArea:        true,
		Furnishing:      Furnished,
	}
}

// Binary returns the yes/no values keyed by field name
func (l Listing) Binary() map[string]bool {
	return map[string]bool{
		"mainroad":        l.MainRoad,
		"guestroom":       l.GuestRoom,
		"basement":        l.Basement,
		"hotwaterheating": l.HotWaterHeating,
		"airconditioning": l.AirConditioning,
		"prefarea":        l.PrefArea,
	}
}

// SetBinary sets a yes/no field by name
func (l *Listing) SetBinary(field string, v bool) error {
	switch field {
	case "mainroad":
		l.MainRoad = v
	case "guestroom":
		l.GuestRoom = v
	case "basement":
		l.Basement = v
	case "hotwaterheating":
		l.HotWaterHeating = v
	case "airconditioning":
		l.AirConditioning = v
	case "prefarea":
		l.PrefArea = v
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidListing, field)
	}
	return nil
}

// ParseYesNo maps a "yes"/"no" form value to a bool
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not yes or no", ErrInvalidListing, s)
	}
}

// YesNo is the inverse of ParseYesNo
func YesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func containsInt(opts []int, v int) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

// Validate checks every field against the form bounds
func (l Listing) Validate() error {
	if l.Area < MinArea || l.Area > MaxArea {
		return fmt.Errorf("%w: area %g outside [%d, %d]", ErrInvalidListing, l.Area, MinArea, MaxArea)
	}
	if !containsInt(BedroomOptions, l.Bedrooms) {
		return fmt.Errorf("%w: bedrooms %d not in %v", ErrInvalidListing, l.Bedrooms, BedroomOptions)
	}
	if !containsInt(BathroomOptions, l.Bathrooms) {
		return fmt.Errorf("%w: bathrooms %d not in %v", ErrInvalidListing, l.Bathrooms, BathroomOptions)
	}
	if !containsInt(StoryOptions, l.Stories) {
		return fmt.Errorf("%w: stories %d not in %v", ErrInvalidListing, l.Stories, StoryOptions)
	}
	if l.Parking < 0 || l.Parking > MaxParking {
		return fmt.Errorf("%w: parking %d outside [0, %d]", ErrInvalidListing, l.Parking, MaxParking)
	}
	for _, f := range FurnishingOptions {
		if l.Furnishing == f {
			return nil
		}
	}
	return fmt.Errorf("%w: furnishing %q not in %v", ErrInvalidListing, l.Furnishing, FurnishingOptions)
}
