package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/features"
	"go.uber.org/zap"
)

// Server exposes the classifier over HTTP
type Server struct {
	service    *core.ClassifierService
	logger     *zap.Logger
	cfg        config.HTTPConfig
	router     chi.Router
	httpServer *http.Server
}

type emailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
}

type preprocessRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Verdict  core.Verdict       `json:"verdict"`
	Score    *float64           `json:"score,omitempty"`
	Model    string             `json:"model,omitempty"`
	Features *features.Features `json:"features,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the HTTP front-end and registers its routes
func NewServer(service *core.ClassifierService, logger *zap.Logger, cfg config.HTTPConfig) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/features", s.handleFeatures)
	r.Post("/preprocess", s.handlePreprocess)

	s.router = r
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP API started", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// ProcessEmail classifies an email directly
func (s *Server) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return s.service.Classify(ctx, email)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.Classify(r.Context(), &core.Email{
		From:    req.From,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		s.logger.Error("Failed to classify email",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to classify email"})
		return
	}

	resp := predictResponse{Verdict: result.Verdict}
	if details, _ := strconv.ParseBool(r.URL.Query().Get("details")); details {
		resp.Score = &result.Score
		resp.Model = result.ModelUsed
		resp.Features = &result.Features
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !s.decode(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, s.service.ExtractFeatures(&core.Email{
		Subject: req.Subject,
		Body:    req.Body,
	}))
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	var req preprocessRequest
	if !s.decode(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, preprocessRequest{Text: features.Preprocess(req.Text)})
}

// decode reads a JSON body into dst and answers 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if s.cfg.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	}

	var raw json.RawMessage
	err := json.NewDecoder(r.Body).Decode(&raw)
	if err == nil && !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		err = errors.New("payload is not a JSON object")
	}
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		s.logger.Debug("Rejected request payload", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request payload"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
