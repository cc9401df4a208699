package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// PaymentGateway creates orders on a Razorpay-compatible orders API.
type PaymentGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewPaymentGateway(baseURL, keyID, keySecret string) *PaymentGateway {
	return &PaymentGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder returns the provider's order id. amount is in minor units.
func (g *PaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(orderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return "", fmt.Errorf("CreateOrder: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("CreateOrder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("CreateOrder: %w: %w", domain.ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("CreateOrder: %w: %w", domain.ErrProviderError, err)
	}
	defer resp.Body.Close()

	log.Info("payment provider response received",
		"provider", "razorpay",
		"receipt", receipt,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("CreateOrder: %w: status %d: %s", domain.ErrProviderError, resp.StatusCode, snippet)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("CreateOrder: decode: %w: %w", domain.ErrProviderError, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("CreateOrder: response has no order id: %w", domain.ErrProviderError)
	}
	return out.ID, nil
}
