package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/kartoza/home-advisor/internal/climate"
	"github.com/kartoza/home-advisor/internal/config"
	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/fuzzy"
	"github.com/kartoza/home-advisor/internal/history"
	"github.com/kartoza/home-advisor/internal/housing"
	"github.com/kartoza/home-advisor/internal/httputil"
	"github.com/kartoza/home-advisor/internal/metrics"
	"github.com/kartoza/home-advisor/internal/models"
)

// Handler provides HTTP API endpoints
type Handler struct {
	controller *climate.Controller
	predictor  *housing.Predictor
	history    history.Store
	models     *forest.Holder
	metrics    *metrics.Metrics
	cfg        config.Config
}

// NewHandler creates a new API handler
func NewHandler(
	controller *climate.Controller,
	predictor *housing.Predictor,
	store history.Store,
	holder *forest.Holder,
	m *metrics.Metrics,
	cfg config.Config,
) *Handler {
	return &Handler{
		controller: controller,
		predictor:  predictor,
		history:    store,
		models:     holder,
		metrics:    m,
		cfg:        cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Setpoint advisor
	r.HandleFunc("/setpoint", h.handleSetpoint).Methods("POST")

	// Price predictor
	r.HandleFunc("/price/schema", h.handlePriceSchema).Methods("GET")
	r.HandleFunc("/price/predict", h.handlePricePredict).Methods("POST")
	r.HandleFunc("/price/history", h.handlePriceHistory).Methods("GET")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":       h.cfg.Version,
		"encoding":      string(h.predictor.Encoding()),
		"column_source": string(h.predictor.ColumnSource()),
		"error_guard":   h.predictor.ErrorGuard(),
		"history":       h.cfg.History.Backend,
	}
	if m, err := h.models.Get(); err == nil {
		info["model"] = m.Info()
	} else {
		info["model_error"] = err.Error()
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleSetpoint computes a thermostat recommendation
func (h *Handler) handleSetpoint(w http.ResponseWriter, r *http.Request) {
	var req models.SetpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Temperature == nil || req.Hour == nil {
		httputil.RespondError(w, http.StatusBadRequest, "temperature and hour are required")
		return
	}
	if err := climate.ValidateInputs(*req.Temperature, *req.Hour); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.metrics.SetpointRequested()
	rec, err := h.controller.Recommend(*req.Temperature, *req.Hour)
	if errors.Is(err, fuzzy.ErrNoActivation) {
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Setpoint computation failed")
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// handlePriceSchema describes the price form and expected columns
func (h *Handler) handlePriceSchema(w http.ResponseWriter, r *http.Request) {
	resp := models.SchemaResponse{
		Fields:       PriceFields(),
		Encoding:     string(h.predictor.Encoding()),
		ColumnSource: string(h.predictor.ColumnSource()),
		ErrorGuard:   h.predictor.ErrorGuard(),
	}
	cols, err := h.predictor.ExpectedColumns()
	if err != nil {
		resp.ColumnsError = err.Error()
	} else {
		resp.Columns = cols
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// handlePricePredict estimates a price and records it in the session history
func (h *Handler) handlePricePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	listing, err := req.Listing()
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.predictor.Predict(SessionID(r), listing)
	if err != nil {
		h.metrics.Predicted(metrics.OutcomeError)
		log.Error().Err(err).Msg("Price prediction failed")
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out.Failed() {
		h.metrics.Predicted(metrics.OutcomeGuarded)
		httputil.RespondJSON(w, http.StatusOK, models.PriceResponse{Message: out.Message})
		return
	}

	h.metrics.Predicted(metrics.OutcomeOK)
	prediction := out.Prediction
	httputil.RespondJSON(w, http.StatusOK, models.PriceResponse{
		Prediction: &prediction,
		Columns:    out.Columns,
		Input:      out.Record,
		EntryID:    out.Entry.ID,
	})
}

// handlePriceHistory returns the session's predictions in order
func (h *Handler) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(SessionID(r))
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.HistoryResponse{Entries: entries})
}

func bound(v float64) *float64 { return &v }

// PriceFields describes the price form fields in display order
func PriceFields() []models.FieldSchema {
	def := housing.DefaultListing()
	ints := func(opts []int) []interface{} {
		out := make([]interface{}, len(opts))
		for i, o := range opts {
			out[i] = o
		}
		return out
	}

	fields := []models.FieldSchema{
		{Name: "area", Kind: "number", Min: bound(housing.MinArea), Max: bound(housing.MaxArea), Default: def.Area},
		{Name: "bedrooms", Kind: "select", Default: def.Bedrooms, Options: ints(housing.BedroomOptions)},
		{Name: "bathrooms", Kind: "select", Default: def.Bathrooms, Options: ints(housing.BathroomOptions)},
		{Name: "stories", Kind: "select", Default: def.Stories, Options: ints(housing.StoryOptions)},
		{Name: "parking", Kind: "slider", Min: bound(0), Max: bound(housing.MaxParking), Default: def.Parking},
	}
	binary := def.Binary()
	for _, f := range housing.BinaryFields {
		fields = append(fields, models.FieldSchema{
			Name: f, Kind: "radio", Default: housing.YesNo(binary[f]),
			Options: []interface{}{"yes", "no"},
		})
	}
	furnishing := make([]interface{}, len(housing.FurnishingOptions))
	for i, o := range housing.FurnishingOptions {
		furnishing[i] = o
	}
	fields = append(fields, models.FieldSchema{
		Name: "furnishing", Kind: "radio", Default: def.Furnishing, Options: furnishing,
	})
	return fields
}
