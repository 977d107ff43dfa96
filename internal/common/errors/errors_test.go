package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", NewInvalidChatRequestError("no messages"), http.StatusBadRequest},
		{"wrapped invalid request", fmt.Errorf("handler: %w", NewInvalidChatRequestError("x")), http.StatusBadRequest},
		{"timeout", NewUpstreamTimeoutError("llm", fmt.Errorf("deadline")), http.StatusGatewayTimeout},
		{"connect refused", NewUpstreamUnavailableError("llm", fmt.Errorf("refused")), http.StatusBadGateway},
		{"upstream 429 passes through", NewUpstreamStatusError("llm", 429, "slow down"), http.StatusTooManyRequests},
		{"not found", NewConversationNotFoundError("abc"), http.StatusNotFound},
		{"ses disabled", NewNotificationDisabledError("email"), http.StatusServiceUnavailable},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewLLMSynthesisFailedError(fmt.Errorf("500")))
	assert.Equal(t, "LLM_SYNTHESIS_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "LLM_SYNTHESIS_FAILED", vars["errorCode"])
	assert.Equal(t, "AI", vars["errorCategory"])

	nonRetryable := ConvertToBPMNError(NewInvalidChatRequestError("empty"))
	assert.Equal(t, 0, nonRetryable.Retries)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeRoutingFailed))
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeEvidenceRetrievalFailed))
	assert.Equal(t, "UPSTREAM", GetErrorCategory(ErrCodeToolExecutionFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeConversationNotFound))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidChatRequest))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	original := NewDecompositionFailedError(fmt.Errorf("bad json"))
	got := Normalize(fmt.Errorf("wrap: %w", original))
	assert.Same(t, original, got)

	internal := Normalize(fmt.Errorf("boom"))
	require.Equal(t, ErrCodeInternal, internal.Code)
	assert.Equal(t, "boom", internal.Details)
}

func TestRemainingRetries(t *testing.T) {
	assert.Equal(t, int32(2), remainingRetries(3, 3))
	assert.Equal(t, int32(3), remainingRetries(5, 3))
	assert.Equal(t, int32(0), remainingRetries(1, 3))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeLLMTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidChatRequest))
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{NewPlanCreationFailedError(fmt.Errorf("empty")), ErrCodePlanCreationFailed, false},
		{NewRoutingFailedError(fmt.Errorf("bad json")), ErrCodeRoutingFailed, true},
		{NewToolExecutionFailedError("weather", fmt.Errorf("503")), ErrCodeToolExecutionFailed, false},
		{NewConversationNotFoundError("abc"), ErrCodeConversationNotFound, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
