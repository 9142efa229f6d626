// Package main provides the HTTP front end for the blood bank matcher:
// recipient and donor listings plus ranked donor matching.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/handlers"
	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/services/dataset"
	"blood-bank-matcher/internal/services/matcher"
	"blood-bank-matcher/internal/utils"
)

// Server holds all dependencies
type Server struct {
	runner *handlers.MatchRunner
	health *handlers.HealthHandler
	logger *zap.Logger
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx := context.Background()
	source, err := dataset.OpenSource(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open table source", zap.Error(err))
	}
	defer source.Close()

	server := NewServer(source, cfg.UsesDatabase(), matcher.NewService(), cfg.DefaultTopN)

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Blood Bank Matcher API Server",
		zap.String("addr", addr),
		zap.String("source", cfg.DataSource),
		zap.String("stage", cfg.Stage),
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// TableSource loads tables and reports backing store health.
type TableSource interface {
	handlers.DatasetSource
	handlers.HealthChecker
}

// NewServer wires the API around a table source.
func NewServer(source TableSource, usesDatabase bool, svc *matcher.Service, defaultTop int) *Server {
	return &Server{
		runner: handlers.NewMatchRunner(source, svc, defaultTop),
		health: handlers.NewHealthHandler(source, usesDatabase),
		logger: utils.GetLogger(),
	}
}

// Routes returns the API mux wrapped in CORS handling.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/health", s.healthHandler)

	// Tables
	mux.HandleFunc("/api/recipients", s.recipientsHandler)
	mux.HandleFunc("/api/donors", s.donorsHandler)

	// Matching
	mux.HandleFunc("/api/match", s.matchHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report, status := s.health.Check(r.Context())

	writeJSON(w, status, Response{
		Success: status == http.StatusOK,
		Message: "Blood Bank Matcher API is running",
		Data:    report,
	})
}

func (s *Server) recipientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recipients, err := s.runner.Recipients(r.Context())
	if err != nil {
		s.logger.Error("Error fetching recipients", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to fetch recipients",
		})
		return
	}
	if recipients == nil {
		recipients = []models.Recipient{}
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    recipients,
	})
}

func (s *Server) donorsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	donors, err := s.runner.Donors(r.Context())
	if err != nil {
		s.logger.Error("Error fetching donors", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to fetch donors",
		})
		return
	}
	if donors == nil {
		donors = []models.Donor{}
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    donors,
	})
}

func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req handlers.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	resp, err := s.runner.Match(r.Context(), req)
	if err != nil {
		status := handlers.StatusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			s.logger.Error("Match request failed",
				zap.Int64("recipient_id", req.RecipientID),
				zap.Error(err),
			)
			message = "Failed to match donors"
		}
		writeJSON(w, status, Response{
			Success: false,
			Error:   message,
		})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: resp.Message,
		Data:    resp,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
