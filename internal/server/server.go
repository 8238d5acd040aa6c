// Package server exposes the HTTP request surface: token registration,
// on-demand scoring, model status and the websocket subscription endpoint.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hejijunhao/aftershock/internal/metrics"
	"github.com/hejijunhao/aftershock/internal/model"
)

// maxBodyBytes bounds request bodies; batch requests are the largest.
const maxBodyBytes = 1 << 20

// Predictor scores loosely typed request values.
type Predictor interface {
	ScoreValues(magnitude, depth, latitude, longitude any) model.Prediction
	ScoreBatch(data any) model.BatchResult
	Status() model.ModelStatus
}

// Registry stores push notification targets.
type Registry interface {
	Register(token string) (bool, error)
	Len() int
}

// Server routes requests to the predictor, the target registry and the
// subscription handler.
type Server struct {
	predictor Predictor
	registry  Registry
	ws        http.Handler
	metrics   *metrics.Metrics
	mux       *http.ServeMux
}

// New builds the route table. ws serves GET /ws; m may be nil.
func New(p Predictor, r Registry, ws http.Handler, m *metrics.Metrics) *Server {
	s := &Server{predictor: p, registry: r, ws: ws, metrics: m, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /register-token", s.handleRegister)
	s.mux.HandleFunc("POST /predict", s.handlePredict)
	s.mux.HandleFunc("POST /batch-predict", s.handleBatchPredict)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	if ws != nil {
		s.mux.Handle("GET /ws", ws)
	}
	if m != nil {
		s.mux.Handle("GET /metrics", m.Handler())
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type registerRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	added, err := s.registry.Register(req.Token)
	switch {
	case err != nil:
		slog.Debug("ignored empty token", "component", "server")
	case added:
		slog.Info("notification target registered", "component", "server", "targets", s.registry.Len())
		s.metrics.Targets(s.registry.Len())
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictRequest struct {
	Magnitude any `json:"magnitude"`
	Depth     any `json:"depth"`
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !decode(w, r, &req) {
		return
	}
	start := time.Now()
	p := s.predictor.ScoreValues(req.Magnitude, req.Depth, req.Latitude, req.Longitude)
	outcome := "success"
	if !p.Success {
		outcome = string(p.ErrorCode)
	}
	s.metrics.Prediction("http", outcome, time.Since(start))
	writeJSON(w, http.StatusOK, p)
}

type batchRequest struct {
	Earthquakes any `json:"earthquakes"`
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	start := time.Now()
	res := s.predictor.ScoreBatch(req.Earthquakes)
	outcome := "success"
	if !res.Success {
		outcome = string(res.ErrorCode)
	}
	s.metrics.Prediction("http_batch", outcome, time.Since(start))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Status())
}

// decode reads a JSON body into v. Numbers stay json.Number so the scorer
// sees the caller's value rather than a float conversion.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	err := dec.Decode(v)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		err = errors.New("request body is empty")
	}
	writeJSON(w, http.StatusBadRequest, model.Failed(model.ErrInvalidInputFormat, fmt.Sprintf("invalid JSON body: %v", err)))
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "component", "server", "error", err)
	}
}
