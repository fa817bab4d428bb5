package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/home-advisor/internal/climate"
	"github.com/kartoza/home-advisor/internal/config"
	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/history"
	"github.com/kartoza/home-advisor/internal/housing"
	"github.com/kartoza/home-advisor/internal/metrics"
	"github.com/kartoza/home-advisor/internal/models"
)

type testEnv struct {
	router  *mux.Router
	store   *history.MemoryStore
	metrics *metrics.Metrics
}

func areaModel(t *testing.T, names []string) *forest.Model {
	t.Helper()
	m, err := forest.New(forest.Artifact{
		Format:       forest.FormatV1,
		NFeatures:    len(names),
		FeatureNames: names,
		Trees: []forest.Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{0, -2, -2},
			Threshold:     []float64{1000, -2, -2},
			Value:         []float64{0, 1500000, 4500000},
		}},
	})
	require.NoError(t, err)
	return m
}

func newTestEnv(t *testing.T, modelNames []string, guard bool) *testEnv {
	t.Helper()
	controller, err := climate.NewController()
	require.NoError(t, err)

	holder := forest.NewHolder(areaModel(t, modelNames))
	store := history.NewMemoryStore()
	predictor, err := housing.NewPredictor(housing.Options{
		Encoding:   housing.EncodingPaired,
		Columns:    housing.ColumnsDeclared,
		ErrorGuard: guard,
	}, holder, store)
	require.NoError(t, err)

	m := metrics.New(holder)
	cfg := config.Config{Version: "test"}
	cfg.History.Backend = "memory"

	r := mux.NewRouter()
	r.Use(SessionMiddleware)
	NewHandler(controller, predictor, store, holder, m, cfg).RegisterRoutes(r)
	return &testEnv{router: r, store: store, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func ptr(v float64) *float64 { return &v }

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	w := env.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response["status"])
}

func TestInfoEndpoint(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	w := env.do(t, "GET", "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "test", response["version"])
	assert.Equal(t, "paired", response["encoding"])
	assert.Contains(t, response, "model")
}

func TestSetpointEndpoint(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	w := env.do(t, "POST", "/setpoint", models.SetpointRequest{Temperature: ptr(22), Hour: ptr(14)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec climate.Recommendation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.InDelta(t, 23.0, rec.Setpoint, 1e-9)
	assert.Equal(t, "comfortable", rec.Preference)
	assert.Len(t, rec.Rules, 4)
}

func TestSetpointEndpointErrors(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"missing hour", models.SetpointRequest{Temperature: ptr(22)}, http.StatusBadRequest},
		{"too hot", models.SetpointRequest{Temperature: ptr(35), Hour: ptr(10)}, http.StatusBadRequest},
		{"bad hour", models.SetpointRequest{Temperature: ptr(22), Hour: ptr(24)}, http.StatusBadRequest},
		{"no rule fires", models.SetpointRequest{Temperature: ptr(16), Hour: ptr(14)}, http.StatusUnprocessableEntity},
		{"not json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/setpoint", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func defaultPriceRequest() models.PriceRequest {
	return models.PriceRequestFromListing(housing.DefaultListing())
}

func TestPricePredictAndHistory(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	// An empty history before any prediction.
	w := env.do(t, "GET", "/price/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	var hist models.HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	assert.Empty(t, hist.Entries)

	areas := []float64{800, 2400}
	for _, area := range areas {
		req := defaultPriceRequest()
		req.Area = area
		w = env.do(t, "POST", "/price/predict", req, cookie)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp models.PriceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.NotNil(t, resp.Prediction)
		assert.Equal(t, housing.DeclaredOrder(housing.EncodingPaired), resp.Columns)
		assert.NotEmpty(t, resp.EntryID)
	}

	w = env.do(t, "GET", "/price/history", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	require.Len(t, hist.Entries, 2)
	assert.Equal(t, 800.0, hist.Entries[0].Input["area"])
	assert.Equal(t, 1500000.0, hist.Entries[0].Prediction)
	assert.Equal(t, 4500000.0, hist.Entries[1].Prediction)

	// Another session sees nothing.
	w = env.do(t, "GET", "/price/history", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	assert.Empty(t, hist.Entries)
}

func TestPricePredictInvalidListing(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	req := defaultPriceRequest()
	req.Area = 50
	w := env.do(t, "POST", "/price/predict", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = defaultPriceRequest()
	req.Basement = "sometimes"
	w = env.do(t, "POST", "/price/predict", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPricePredictUnguardedMismatch(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingYesOnly), false)

	w := env.do(t, "POST", "/price/predict", defaultPriceRequest())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp["error"], forest.ErrColumnMismatch.Error())
}

func TestPricePredictGuardedMismatch(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingYesOnly), true)

	w := env.do(t, "POST", "/price/predict", defaultPriceRequest())
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	var resp models.PriceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Nil(t, resp.Prediction)
	assert.True(t, strings.HasPrefix(resp.Message, "Error during prediction: "))

	w = env.do(t, "GET", "/price/history", nil, cookie)
	var hist models.HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	assert.Empty(t, hist.Entries)
}

func TestPriceSchema(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	w := env.do(t, "GET", "/price/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var schema models.SchemaResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&schema))
	assert.Equal(t, "paired", schema.Encoding)
	assert.Equal(t, "declared", schema.ColumnSource)
	assert.Len(t, schema.Columns, 20)
	assert.Len(t, schema.Fields, 12)
	assert.Equal(t, "area", schema.Fields[0].Name)
	assert.Equal(t, "furnishing", schema.Fields[11].Name)
}

func TestSessionCookieReused(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	w := env.do(t, "GET", "/health", nil)
	cookie := sessionCookie(t, w)

	w = env.do(t, "GET", "/health", nil, cookie)
	assert.Empty(t, w.Result().Cookies())

	w = env.do(t, "GET", "/health", nil, &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", sessionCookie(t, w).Value)
}

func TestMetricsCountOutcomes(t *testing.T) {
	env := newTestEnv(t, housing.DeclaredOrder(housing.EncodingPaired), false)

	env.do(t, "POST", "/price/predict", defaultPriceRequest())
	env.do(t, "POST", "/setpoint", models.SetpointRequest{Temperature: ptr(30), Hour: ptr(3)})

	var buf bytes.Buffer
	require.NoError(t, env.metrics.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, `home_advisor_predictions_total{outcome="ok"} 1`)
	assert.Contains(t, out, "home_advisor_setpoint_requests_total 1")
}
