package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// Prompts containing these words steer the mock completion endpoint.
const (
	triggerFail  = "fail"
	triggerEmpty = "empty"
	triggerSlow  = "slow"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func main() {
	logging.Init("mock-provider", "info", os.Getenv("APP_ENV"))

	addr := ":8081"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /chat/completions", handleChat)
	mux.HandleFunc("POST /orders", handleOrder)

	slog.Info("mock provider started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	var prompt string
	for _, m := range req.Messages {
		if m.Role == "user" {
			prompt = strings.ToLower(m.Content)
		}
	}

	content := "Rest, drink fluids and monitor your temperature. See a doctor if symptoms persist beyond three days."
	switch {
	case strings.Contains(prompt, triggerFail):
		slog.Info("mock completion failing", "model", req.Model)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upstream failure"})
		return
	case strings.Contains(prompt, triggerSlow):
		select {
		case <-r.Context().Done():
			return
		case <-time.After(60 * time.Second):
		}
	case strings.Contains(prompt, triggerEmpty):
		content = "   "
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    "chatcmpl-" + uuid.NewString(),
		"model": req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       chatMessage{Role: "assistant", Content: content},
			"finish_reason": "stop",
		}},
	})
}

func handleOrder(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order"})
		return
	}

	id := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	slog.Info("mock order created", "order_id", id, "amount", req.Amount, "currency", req.Currency)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"entity":     "order",
		"amount":     req.Amount,
		"currency":   req.Currency,
		"receipt":    req.Receipt,
		"status":     "created",
		"created_at": time.Now().Unix(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
