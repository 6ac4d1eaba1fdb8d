// Package serving exposes a trained model over HTTP for local scoring:
// a health probe plus a prediction endpoint that accepts raw feature
// vectors or named records.
package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/purchaseml/purchase-predictor/pkg/model"
)

// Server serves predictions from a loaded model.
type Server struct {
	model     *model.Model
	version   string
	logger    *slog.Logger
	startedAt time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithModelVersion sets the version string reported in responses.
func WithModelVersion(version string) ServerOption {
	return func(s *Server) { s.version = version }
}

// NewServer creates a scoring server over a loaded model.
func NewServer(m *model.Model, opts ...ServerOption) *Server {
	s := &Server{
		model:     m,
		version:   "unversioned",
		logger:    slog.Default(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.healthHandler)
	r.Post("/predict", s.predictHandler)

	return r
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("scoring server listening", "addr", addr, "modelVersion", s.version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"model_loaded": s.model != nil,
		"uptime":       time.Since(s.startedAt).Round(time.Second).String(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// instancePayload is one named record in a prediction request.
type instancePayload struct {
	Price               float64 `json:"price"`
	UserRating          int     `json:"user_rating"`
	Category            string  `json:"category"`
	PreviouslyPurchased string  `json:"previously_purchased"`
}

// predictRequest accepts either raw feature vectors ("data") or named
// records ("instances").
type predictRequest struct {
	Data      [][]float64       `json:"data"`
	Instances []instancePayload `json:"instances"`
}

type predictResponse struct {
	Predictions   []int     `json:"predictions"`
	Probabilities []float64 `json:"probabilities"`
	Confidence    []string  `json:"confidence"`
	InputCount    int       `json:"input_count"`
	Timestamp     string    `json:"timestamp"`
	ModelVersion  string    `json:"model_version"`
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	if s.model == nil {
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	features, err := s.collectFeatures(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(features) == 0 {
		writeError(w, http.StatusBadRequest, "request contains no instances")
		return
	}

	resp := predictResponse{
		InputCount:   len(features),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		ModelVersion: s.version,
	}
	for _, x := range features {
		p, err := s.model.Classifier.PredictProba(x)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Probabilities = append(resp.Probabilities, p)
		if p >= 0.5 {
			resp.Predictions = append(resp.Predictions, 1)
		} else {
			resp.Predictions = append(resp.Predictions, 0)
		}
		resp.Confidence = append(resp.Confidence, confidenceLabel(p))
	}

	s.logger.Debug("served prediction", "instances", len(features))
	writeJSON(w, http.StatusOK, resp)
}

// collectFeatures turns either request form into feature vectors. Raw
// vectors must already match the model's feature width; named records go
// through the fitted preprocessor.
func (s *Server) collectFeatures(req predictRequest) ([][]float64, error) {
	if len(req.Data) > 0 && len(req.Instances) > 0 {
		return nil, errors.New(`provide either "data" or "instances", not both`)
	}

	want := len(model.FeatureNames)
	var features [][]float64
	for i, row := range req.Data {
		if len(row) != want {
			return nil, fmt.Errorf("data row %d has %d values, want %d", i, len(row), want)
		}
		features = append(features, row)
	}
	for i, inst := range req.Instances {
		x, err := s.model.Preprocessor.TransformRaw(inst.Price, inst.UserRating, inst.Category, inst.PreviouslyPurchased)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %v", i, err)
		}
		features = append(features, x)
	}
	return features, nil
}

// confidenceLabel buckets a probability by its distance from the decision
// boundary.
func confidenceLabel(p float64) string {
	switch d := math.Abs(p - 0.5); {
	case d >= 0.4:
		return "high"
	case d >= 0.2:
		return "medium"
	default:
		return "low"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
