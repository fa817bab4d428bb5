package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/kartoza/home-advisor/internal/api"
	"github.com/kartoza/home-advisor/internal/climate"
	"github.com/kartoza/home-advisor/internal/config"
	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/history"
	"github.com/kartoza/home-advisor/internal/housing"
	"github.com/kartoza/home-advisor/internal/metrics"
)

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	models     *forest.Holder
	controller *climate.Controller
	predictor  *housing.Predictor
	history    history.Store
	metrics    *metrics.Metrics
	pages      map[string]*template.Template
	cancel     context.CancelFunc
}

// New creates a new Server with all components initialized. The model
// artifact must load; there is no degraded mode without it.
func New(cfg config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	model, err := forest.Load(cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	s.models = forest.NewHolder(model)
	log.Info().Str("path", cfg.Model.Path).Int("trees", model.Info().Trees).Msg("Loaded price model")

	s.controller, err = climate.NewController()
	if err != nil {
		return nil, fmt.Errorf("build setpoint controller: %w", err)
	}

	s.history, err = history.Open(cfg.History.Backend, cfg.SQLiteFile())
	if err != nil {
		return nil, err
	}

	opts := housing.Options{
		Encoding:   housing.Encoding(cfg.Price.Encoding),
		Columns:    housing.ColumnSource(cfg.Price.Columns),
		ErrorGuard: cfg.Price.ErrorGuard,
	}
	if cfg.Price.FeatureOrderFile != "" {
		opts.Order, err = housing.LoadFeatureOrder(cfg.Price.FeatureOrderFile)
		if err != nil {
			s.history.Close()
			return nil, err
		}
	}
	s.predictor, err = housing.NewPredictor(opts, s.models, s.history)
	if err != nil {
		s.history.Close()
		return nil, err
	}

	s.metrics = metrics.New(s.models)

	s.pages, err = loadTemplates()
	if err != nil {
		s.history.Close()
		return nil, err
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(requestLogger, api.SessionMiddleware)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.controller, s.predictor, s.history, s.models, s.metrics, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	// Model artifact management routes
	s.router.HandleFunc("/api/model/status", s.handleModelStatus).Methods("GET")
	s.router.HandleFunc("/api/model/install", s.handleModelInstall).Methods("POST")

	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	// Form pages
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/setpoint", s.handleSetpointPage).Methods("GET")
	s.router.HandleFunc("/price", s.handlePricePage).Methods("GET")
	s.router.HandleFunc("/price", s.handlePriceSubmit).Methods("POST")
	s.router.HandleFunc("/price/history", s.handleHistoryPage).Methods("GET")
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Models returns the holder of the active price model
func (s *Server) Models() *forest.Holder {
	return s.models
}

// Start begins listening for HTTP connections. With model.watch set, the
// artifact is reloaded whenever it changes on disk.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.Model.Watch {
		go func() {
			err := forest.Watch(ctx, s.cfg.Model.Path, func(m *forest.Model) {
				s.models.Swap(m)
			})
			if err != nil {
				log.Error().Err(err).Msg("Model watcher stopped")
			}
		}()
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Msgf("Server listening on http://localhost:%d", s.cfg.Server.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.cancel != nil {
		s.cancel()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if cerr := s.history.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs every request with its status and duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
