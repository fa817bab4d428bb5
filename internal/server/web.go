package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kartoza/home-advisor/internal/api"
	"github.com/kartoza/home-advisor/internal/climate"
	"github.com/kartoza/home-advisor/internal/fuzzy"
	"github.com/kartoza/home-advisor/internal/housing"
	"github.com/kartoza/home-advisor/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "setpoint", "price", "history"}

var binaryLabels = map[string]string{
	"mainroad":        "Main Road Access",
	"guestroom":       "Guest Room",
	"basement":        "Basement",
	"hotwaterheating": "Hot Water Heating",
	"airconditioning": "Air Conditioning",
	"prefarea":        "Preferred Area",
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders a prediction the way the price form shows it
func FormatPrice(v float64) string {
	return pricePrinter.Sprintf("₹%.2f", v)
}

// loadTemplates parses one template set per page, each sharing the layout
func loadTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type page struct {
	Title   string
	Version string
}

type setpointPage struct {
	page
	Temperature, Hour              float64
	MinTemperature, MaxTemperature int
	MinHour, MaxHour               int
	Setpoint                       float64
	Preference                     string
	Error                          string
}

type binaryField struct {
	Name, Label string
	Yes         bool
}

type pricePage struct {
	page
	Form                         housing.Listing
	MinArea, MaxArea, MaxParking int
	Bedrooms, Bathrooms, Stories []int
	Binary                       []binaryField
	Furnishing                   []string
	Price                        string
	Error                        string
}

type historyRow struct {
	Values []string
	Price  string
}

type historyPage struct {
	page
	Entries bool
	Columns []string
	Rows    []historyRow
}

// render executes a page into a buffer first so a template error never
// produces a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("Template rendering failed")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) newPage(title string) page {
	return page{Title: title, Version: s.cfg.Version}
}

// handleIndex serves the landing page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", s.newPage("Home"))
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return v, nil
}

// handleSetpointPage recomputes the recommendation on every change of the
// sliders, which submit their values as query parameters.
func (s *Server) handleSetpointPage(w http.ResponseWriter, r *http.Request) {
	data := setpointPage{
		page:           s.newPage("Setpoint"),
		Temperature:    climate.DefaultTemperature,
		Hour:           climate.DefaultHour,
		MinTemperature: climate.MinTemperature,
		MaxTemperature: climate.MaxTemperature,
		MinHour:        climate.MinHour,
		MaxHour:        climate.MaxHour,
	}

	var err error
	if data.Temperature, err = queryFloat(r, "temperature", climate.DefaultTemperature); err == nil {
		data.Hour, err = queryFloat(r, "hour", climate.DefaultHour)
	}
	if err == nil {
		err = climate.ValidateInputs(data.Temperature, data.Hour)
	}
	if err != nil {
		data.Error = err.Error()
		data.Preference = climate.PredictPreference(int(data.Hour))
		s.render(w, http.StatusBadRequest, "setpoint", data)
		return
	}

	s.metrics.SetpointRequested()
	rec, err := s.controller.Recommend(data.Temperature, data.Hour)
	data.Preference = climate.PredictPreference(int(data.Hour))
	switch {
	case errors.Is(err, fuzzy.ErrNoActivation):
		data.Error = "No rule applies to this temperature at this hour."
	case err != nil:
		log.Error().Err(err).Msg("Setpoint computation failed")
		data.Error = err.Error()
	default:
		data.Setpoint = rec.Setpoint
	}
	s.render(w, http.StatusOK, "setpoint", data)
}

func (s *Server) newPricePage(form housing.Listing) pricePage {
	binary := form.Binary()
	fields := make([]binaryField, len(housing.BinaryFields))
	for i, f := range housing.BinaryFields {
		fields[i] = binaryField{Name: f, Label: binaryLabels[f], Yes: binary[f]}
	}
	return pricePage{
		page:       s.newPage("Price"),
		Form:       form,
		MinArea:    housing.MinArea,
		MaxArea:    housing.MaxArea,
		MaxParking: housing.MaxParking,
		Bedrooms:   housing.BedroomOptions,
		Bathrooms:  housing.BathroomOptions,
		Stories:    housing.StoryOptions,
		Binary:     fields,
		Furnishing: housing.FurnishingOptions,
	}
}

// handlePricePage shows the price form with its default values
func (s *Server) handlePricePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "price", s.newPricePage(housing.DefaultListing()))
}

// parseListingForm reads the posted price form
func parseListingForm(r *http.Request) (housing.Listing, error) {
	if err := r.ParseForm(); err != nil {
		return housing.Listing{}, err
	}
	l := housing.DefaultListing()

	area, err := strconv.ParseFloat(r.PostFormValue("area"), 64)
	if err != nil {
		return l, fmt.Errorf("%w: area is not a number", housing.ErrInvalidListing)
	}
	l.Area = area

	ints := map[string]*int{
		"bedrooms":  &l.Bedrooms,
		"bathrooms": &l.Bathrooms,
		"stories":   &l.Stories,
		"parking":   &l.Parking,
	}
	for key, dst := range ints {
		v, err := strconv.Atoi(r.PostFormValue(key))
		if err != nil {
			return l, fmt.Errorf("%w: %s is not a whole number", housing.ErrInvalidListing, key)
		}
		*dst = v
	}

	for _, f := range housing.BinaryFields {
		v, err := housing.ParseYesNo(r.PostFormValue(f))
		if err != nil {
			return l, fmt.Errorf("%s: %w", f, err)
		}
		if err := l.SetBinary(f, v); err != nil {
			return l, err
		}
	}
	l.Furnishing = r.PostFormValue("furnishing")
	return l, l.Validate()
}

// handlePriceSubmit predicts a price from the posted form
func (s *Server) handlePriceSubmit(w http.ResponseWriter, r *http.Request) {
	form, err := parseListingForm(r)
	data := s.newPricePage(form)
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "price", data)
		return
	}

	out, err := s.predictor.Predict(api.SessionID(r), form)
	switch {
	case err != nil:
		s.metrics.Predicted(metrics.OutcomeError)
		log.Error().Err(err).Msg("Price prediction failed")
		data.Error = err.Error()
		s.render(w, http.StatusInternalServerError, "price", data)
		return
	case out.Failed():
		s.metrics.Predicted(metrics.OutcomeGuarded)
		data.Error = out.Message
	default:
		s.metrics.Predicted(metrics.OutcomeOK)
		data.Price = FormatPrice(out.Prediction)
	}
	s.render(w, http.StatusOK, "price", data)
}

// handleHistoryPage renders the session's predictions as a table
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.List(api.SessionID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := historyPage{page: s.newPage("History"), Entries: len(entries) > 0}
	if data.Entries {
		// Union of every entry's columns; entries may predate a schema change.
		seen := map[string]bool{}
		for _, e := range entries {
			for k := range e.Input {
				if !seen[k] {
					seen[k] = true
					data.Columns = append(data.Columns, k)
				}
			}
		}
		sort.Strings(data.Columns)
		if cols, err := s.predictor.ExpectedColumns(); err == nil && len(cols) == len(data.Columns) {
			data.Columns = cols
		}

		for _, e := range entries {
			row := historyRow{Price: FormatPrice(e.Prediction)}
			for _, c := range data.Columns {
				if v, ok := e.Input[c]; ok {
					row.Values = append(row.Values, strconv.FormatFloat(v, 'f', -1, 64))
				} else {
					row.Values = append(row.Values, "")
				}
			}
			data.Rows = append(data.Rows, row)
		}
	}
	s.render(w, http.StatusOK, "history", data)
}

// handleMetrics serves the Prometheus text exposition
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.metrics.Write(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType)
	buf.WriteTo(w)
}
