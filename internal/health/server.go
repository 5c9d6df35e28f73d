// Package health serves liveness, readiness, metrics and the small
// read-only prediction API.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/matchcast/internal/backtest"
	"github.com/yourusername/matchcast/internal/database"
	"github.com/yourusername/matchcast/internal/ensemble"
	"github.com/yourusername/matchcast/internal/metrics"
	"github.com/yourusername/matchcast/internal/models"
	"github.com/yourusername/matchcast/internal/repository"
)

// Server exposes the operational HTTP surface
type Server struct {
	httpServer *http.Server
	db         *database.DB
	fixtures   repository.FixtureRepository
	prediction *ensemble.Service
	backtest   *backtest.Engine
	logger     *logrus.Logger
}

// NewServer builds the HTTP server on the given port
func NewServer(
	port int,
	metricsPath string,
	db *database.DB,
	fixtures repository.FixtureRepository,
	prediction *ensemble.Service,
	backtestEngine *backtest.Engine,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		db:         db,
		fixtures:   fixtures,
		prediction: prediction,
		backtest:   backtestEngine,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/v1/predictions/{fixture_id}", s.handlePrediction)
	mux.HandleFunc("GET /api/v1/accuracy/{window}", s.handleAccuracy)
	mux.Handle("GET "+metricsPath, promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	fixtureID, err := uuid.Parse(r.PathValue("fixture_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fixture id"})
		return
	}

	fixture, err := s.fixtures.GetByID(r.Context(), fixtureID)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "fixture not found"})
		return
	}
	if err != nil {
		s.logger.Errorf("Fixture lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	prediction, err := s.prediction.Predict(r.Context(), fixture)
	if err != nil {
		s.logger.WithField("fixture_id", fixtureID).Errorf("Prediction failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "prediction unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	window := models.AccuracyWindow(r.PathValue("window"))
	switch window {
	case models.AccuracyWindow7Day, models.AccuracyWindow30Day, models.AccuracyWindowAll:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown window"})
		return
	}

	summary, err := s.backtest.GetAccuracySummary(r.Context(), window)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no summary yet"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
