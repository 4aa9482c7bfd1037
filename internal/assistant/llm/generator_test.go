package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	require.NoError(t, err)

	return NewOpenAIGenerator(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "gpt-4o-mini",
	}, log)
}

func TestGenerateReturnsCompletion(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello there  "}}]}`))
	})

	text, err := g.Generate(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var requests int
	g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	})

	_, err := g.Generate(context.Background(), "say hi")
	assert.True(t, apperrors.Is(err, apperrors.ErrChatUpstreamFailed))
	assert.Equal(t, 1, requests)
}

func TestGenerateExhaustsRetriesOnServerErrors(t *testing.T) {
	var requests int
	g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := g.Generate(context.Background(), "say hi")
	assert.True(t, apperrors.Is(err, apperrors.ErrChatUpstreamOverloaded))
	assert.Equal(t, maxAttempts, requests)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isRetryable(&openai.APIError{HTTPStatusCode: 500}))
	assert.True(t, isRetryable(context.DeadlineExceeded))

	assert.False(t, isRetryable(&openai.APIError{HTTPStatusCode: 400}))
	assert.False(t, isRetryable(errors.New("parse failure")))
	assert.False(t, isRetryable(context.Canceled))
}
