package llm

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/sashabaranov/go-openai"
)

// ProxyRequest is forwarded as-is to the chat completion endpoint.
type ProxyRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature *float32             `json:"temperature,omitempty"`
	MaxTokens   *int                 `json:"max_tokens,omitempty"`
}

const upstreamName = "llm"

// Proxy sends req upstream under its own fixed deadline, bypassing the circuit
// breaker. Errors are StandardErrors whose codes map to 502, 504 or the
// upstream status.
func (c *Client) Proxy(ctx context.Context, req ProxyRequest, timeout time.Duration) (string, error) {
	if c.config.APIKey == "" {
		return "", apperrors.NewInternalError(errors.New("LLM API key not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	oaReq := openai.ChatCompletionRequest{Model: model}
	for _, m := range req.Messages {
		oaReq.Messages = append(oaReq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if req.Temperature != nil {
		oaReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		oaReq.MaxTokens = *req.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		mapped := classifyProxyError(ctx, err)
		c.logger.Error("LLM proxy call failed", map[string]interface{}{
			"error": err.Error(),
			"code":  string(mapped.Code),
		})
		return "", mapped
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewInternalError(errors.New("upstream returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyProxyError(ctx context.Context, err error) *apperrors.StandardError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apperrors.NewUpstreamStatusError(upstreamName, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return apperrors.NewUpstreamStatusError(upstreamName, reqErr.HTTPStatusCode, body)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewUpstreamTimeoutError(upstreamName, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewUpstreamTimeoutError(upstreamName, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return apperrors.NewUpstreamUnavailableError(upstreamName, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return apperrors.NewUpstreamUnavailableError(upstreamName, err)
	}

	return apperrors.NewInternalError(err)
}
