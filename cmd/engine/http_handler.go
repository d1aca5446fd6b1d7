package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spinforge/outcome-engine/internal/core"
	"github.com/spinforge/outcome-engine/internal/generator"
	"github.com/spinforge/outcome-engine/internal/logger"
	"github.com/spinforge/outcome-engine/internal/store"
)

type engineControl interface {
	Status() generator.Status
	TriggerCheck(ctx context.Context) error
	ForceGenerate(ctx context.Context) error
}

type roundReader interface {
	GetByRound(n uint64) (*core.Round, error)
	GetLatestByInsertOrder() (*core.Round, error)
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type TriggerResponse struct {
	Status         string    `json:"status"`
	TriggeredAtUTC time.Time `json:"triggered_at_utc"`
}

type APIErrorResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type EngineHTTPHandler struct {
	controller engineControl
	rounds     roundReader
}

func NewEngineHTTPHandler(controller engineControl, rounds roundReader) *EngineHTTPHandler {
	return &EngineHTTPHandler{controller: controller, rounds: rounds}
}

func (h *EngineHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.HandleFunc("/generate", h.HandleGenerate)
	mux.HandleFunc("/generate/force", h.HandleForceGenerate)
	mux.HandleFunc("/rounds/", h.HandleRounds)
}

func (h *EngineHTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

func (h *EngineHTTPHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Status())
}

// HandleGenerate re-runs the queue-depth check (manual trigger).
func (h *EngineHTTPHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.controller.TriggerCheck(r.Context()); err != nil {
		writeErrorJSON(w, triggerStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TriggerResponse{
		Status:         "ok",
		TriggeredAtUTC: time.Now().UTC(),
	})
}

// HandleForceGenerate enters batch generation directly, bypassing the
// queue-depth check.
func (h *EngineHTTPHandler) HandleForceGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.controller.ForceGenerate(r.Context()); err != nil {
		writeErrorJSON(w, triggerStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TriggerResponse{
		Status:         "ok",
		TriggeredAtUTC: time.Now().UTC(),
	})
}

// HandleRounds serves /rounds/latest and /rounds/{n}.
func (h *EngineHTTPHandler) HandleRounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	suffix := strings.TrimPrefix(r.URL.Path, "/rounds/")
	var (
		round *core.Round
		err   error
	)
	if suffix == "latest" {
		round, err = h.rounds.GetLatestByInsertOrder()
	} else {
		n, parseErr := strconv.ParseUint(suffix, 10, 64)
		if parseErr != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid round number")
			return
		}
		round, err = h.rounds.GetByRound(n)
	}

	if err != nil {
		if errors.Is(err, store.ErrRoundNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "round not found")
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func triggerStatusCode(err error) int {
	switch {
	case errors.Is(err, generator.ErrGenerating):
		return http.StatusConflict
	case errors.Is(err, generator.ErrRangeConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func startHTTPServer(port int, controller engineControl, rounds roundReader) *http.Server {
	mux := http.NewServeMux()
	handler := NewEngineHTTPHandler(controller, rounds)
	handler.Register(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Engine HTTP server started",
			"port", port,
			"status_endpoint", "/status",
			"generate_endpoint", "/generate",
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed to start", "error", err)
		}
	}()

	return server
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "status", statusCode, "err", err)
	}
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, APIErrorResponse{
		Status:    "error",
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
