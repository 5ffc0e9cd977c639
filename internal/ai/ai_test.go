package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/lunabot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		wantNil  bool
		wantErr  bool
	}{
		{name: "none", provider: ProviderNone, wantNil: true},
		{name: "empty", provider: "", wantNil: true},
		{name: "openai", provider: ProviderOpenAI},
		{name: "unknown", provider: "llama", wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := New(context.Background(), config.AIConfig{
				Provider: tt.provider, APIKey: "key", Model: "gpt-test", Timeout: time.Second,
			}, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, client == nil)
		})
	}
}

func TestSystemInstruction(t *testing.T) {
	t.Parallel()

	got := systemInstruction(config.AIConfig{SystemInstruction: "Be kind."}, Request{BotName: "Luna", UserName: "Ann"})
	assert.Contains(t, got, "You are Luna")
	assert.Contains(t, got, "Reply to Ann")
	assert.Contains(t, got, "Be kind.")

	got = systemInstruction(config.AIConfig{}, Request{})
	assert.Contains(t, got, "You are the bot")
}

func newOpenAIServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"try later","type":"server_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  echo: " + req.Messages[len(req.Messages)-1].Content + " "},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failures  int32
		status    int
		retries   int
		want      string
		wantErr   bool
		wantCalls int32
	}{
		{name: "success", want: "echo: hello", wantCalls: 1},
		{name: "retries server errors", failures: 2, status: http.StatusServiceUnavailable, retries: 2, want: "echo: hello", wantCalls: 3},
		{name: "gives up after max retries", failures: 5, status: http.StatusInternalServerError, retries: 1, wantErr: true, wantCalls: 2},
		{name: "client errors are not retried", failures: 5, status: http.StatusBadRequest, retries: 3, wantErr: true, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, calls := newOpenAIServer(t, tt.failures, tt.status)
			client := newOpenAIClient(config.AIConfig{
				Provider:   ProviderOpenAI,
				APIKey:     "key",
				Model:      "gpt-test",
				BaseURL:    srv.URL + "/v1",
				Timeout:    5 * time.Second,
				MaxRetries: tt.retries,
			}, discardLogger())

			got, err := client.Complete(context.Background(), Request{Text: "hello"})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestWithRetriesStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetries(ctx, discardLogger(), 5, time.Hour, func(error) bool { return true }, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
