package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

func TestLLMClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  likely a cold  "}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL+"/", "sk-test", time.Second)
	text, err := c.CompleteWithSystem(context.Background(), "be brief", "fever and cough", "gpt-4o-mini", 700)
	require.NoError(t, err)

	assert.Equal(t, "likely a cold", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 700, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "fever and cough", got.Messages[1].Content)
}

func TestLLMClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, domain.ErrProviderError},
		{"rate limited", http.StatusTooManyRequests, `{}`, domain.ErrProviderError},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.ErrEmptyCompletion},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, domain.ErrEmptyCompletion},
		{"not json", http.StatusOK, `<html>`, domain.ErrEmptyCompletion},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewLLMClient(srv.URL, "sk-test", time.Second)
			_, err := c.Complete(context.Background(), "hi", "gpt-4", 10)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLLMClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewLLMClient(srv.URL, "sk-test", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "hi", "gpt-4", 10)
	require.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestLLMClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewLLMClient(url, "sk-test", time.Second)
	_, err := c.Complete(context.Background(), "hi", "gpt-4", 10)
	require.ErrorIs(t, err, domain.ErrProviderError)
}
