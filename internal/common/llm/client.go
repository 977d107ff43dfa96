// Package llm wraps an OpenAI-compatible chat completion endpoint (Mistral by
// default) behind the narrow Complete(prompt) interface the pipeline depends on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"versailles-assistant/internal/common/metrics"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

var (
	ErrLLMTimeout      = errors.New("LLM_TIMEOUT")
	ErrLLMFailed       = errors.New("LLM_CALL_FAILED")
	ErrEmptyCompletion = errors.New("LLM_EMPTY_COMPLETION")
	ErrCircuitOpen     = errors.New("LLM_CIRCUIT_OPEN")
)

// Completer is the oracle interface: one prompt in, one completion out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32
	MaxTokens   int
}

type Client struct {
	api     *openai.Client
	config  Config
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

// New builds a client sharing httpClient with the rest of the process.
func New(cfg Config, httpClient *http.Client, log Logger) *Client {
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	oaCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient != nil {
		oaCfg.HTTPClient = httpClient
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &Client{
		api:     openai.NewClientWithConfig(oaCfg),
		config:  cfg,
		breaker: breaker,
		logger:  log,
	}
}

// Named returns a Completer that labels its metrics with operation.
func (c *Client) Named(operation string) Completer {
	return &namedCompleter{client: c, operation: operation}
}

type namedCompleter struct {
	client    *Client
	operation string
}

func (n *namedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return n.client.complete(ctx, n.operation, prompt)
}

// Complete satisfies Completer with the generic "complete" operation label.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "complete", prompt)
}

func (c *Client) complete(ctx context.Context, operation, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.completeWithRetry(ctx, prompt)
	metrics.LLMCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrLLMTimeout) {
			outcome = "timeout"
		}
		c.logger.Warn("LLM call failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
	}
	metrics.LLMCalls.WithLabelValues(operation, outcome).Inc()
	return text, err
}

func (c *Client) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrLLMTimeout
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.createCompletion(ctx, prompt)
		})
		if err == nil {
			return result.(string), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if errors.Is(err, ErrEmptyCompletion) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", ErrLLMFailed, lastErr)
}

func (c *Client) createCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
