package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

// Generator produces conversational text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	maxAttempts    = 3
	initialBackoff = time.Second
	requestTimeout = 60 * time.Second

	temperature = 0.7
	maxTokens   = 800
)

// Config for the OpenAI-backed generator
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIGenerator calls the chat completion API with bounded retries.
// Only overload and server-side failures are retried; everything else
// surfaces immediately so the caller can fall back.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

func NewOpenAIGenerator(cfg Config, log *logger.Logger) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: log,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := initialBackoff << (attempt - 2)
			g.logger.Warn("text generation retry",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := g.call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", apperrors.Wrap(err, apperrors.ErrChatUpstreamFailed)
		}
	}

	return "", apperrors.Wrap(lastErr, apperrors.ErrChatUpstreamOverloaded)
}

func (g *OpenAIGenerator) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("blank completion")
	}
	return text, nil
}

// isRetryable treats rate limits, server errors and per-call timeouts as
// transient. The per-call timeout must not kill the whole retry loop.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}
