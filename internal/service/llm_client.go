package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// LLMClient calls an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewLLMClient leaves request deadlines to the caller's context; timeout is
// only a backstop for callers that pass none.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a single-turn prompt. Failures map to ErrProviderTimeout,
// ErrProviderError or, for a 2xx without usable text, ErrEmptyCompletion.
func (c *LLMClient) Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	return c.chat(ctx, model, maxTokens, chatMessage{Role: "user", Content: prompt})
}

// CompleteWithSystem is Complete with a leading system message.
func (c *LLMClient) CompleteWithSystem(ctx context.Context, system, prompt, model string, maxTokens int) (string, error) {
	return c.chat(ctx, model, maxTokens,
		chatMessage{Role: "system", Content: system},
		chatMessage{Role: "user", Content: prompt},
	)
}

func (c *LLMClient) chat(ctx context.Context, model string, maxTokens int, msgs ...chatMessage) (string, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("Complete: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Complete: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("Complete: %w: %w", domain.ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("Complete: %w: %w", domain.ErrProviderError, err)
	}
	defer resp.Body.Close()

	log.Info("llm response received",
		"provider", "openai",
		"model", model,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("Complete: %w: status %d: %s", domain.ErrProviderError, resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("Complete: %w: %w", domain.ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("Complete: decode: %w: %w", domain.ErrEmptyCompletion, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("Complete: no choices: %w", domain.ErrEmptyCompletion)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("Complete: blank content: %w", domain.ErrEmptyCompletion)
	}
	return text, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
