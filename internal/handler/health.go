package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

const version = "1.0.0"

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports down when the ledger store cannot be reached within 2s.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("readiness check failed: ledger store unreachable", "error", err)
		status, code = "down", http.StatusServiceUnavailable
	}

	RespondJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"ledger_store": status,
		},
	})
}
