// Package errors provides standardized error handling for the assistant pipeline,
// the chat API and the optional BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePlanCreationFailed       ErrorCode = "PLAN_CREATION_FAILED"
	ErrCodeEvidenceRetrievalFailed  ErrorCode = "EVIDENCE_RETRIEVAL_FAILED"
	ErrCodeKnowledgeBaseUnavailable ErrorCode = "KNOWLEDGE_BASE_UNAVAILABLE"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed  ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeRoutingFailed       ErrorCode = "ROUTING_FAILED"
	ErrCodeDecompositionFailed ErrorCode = "DECOMPOSITION_FAILED"

	ErrCodeInvalidChatRequest  ErrorCode = "INVALID_CHAT_REQUEST"
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamStatus      ErrorCode = "UPSTREAM_STATUS"

	ErrCodeToolExecutionFailed  ErrorCode = "TOOL_EXECUTION_FAILED"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeNotificationDisabled   ErrorCode = "NOTIFICATION_DISABLED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns the error with one more metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err to a *StandardError if one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewPlanCreationFailedError is raised when a query cannot be turned into a plan at all.
func NewPlanCreationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanCreationFailed,
		Message:   "Failed to create a retrieval plan",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvidenceRetrievalFailedError creates a retryable error for one facet.
func NewEvidenceRetrievalFailedError(facet string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvidenceRetrievalFailed,
		Message:   "Evidence retrieval failed",
		Details:   fmt.Sprintf("facet: %s, error: %s", facet, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewKnowledgeBaseUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeKnowledgeBaseUnavailable,
		Message:   "Knowledge base unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM call timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMSynthesisFailedError creates a retryable LLM synthesis error.
func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "LLM synthesis API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRoutingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoutingFailed,
		Message:   "Query routing failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDecompositionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecompositionFailed,
		Message:   "Query decomposition failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidChatRequestError is a client error and never retried.
func NewInvalidChatRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidChatRequest,
		Message:   "Invalid chat request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   fmt.Sprintf("Upstream '%s' timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("Cannot connect to upstream '%s'", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamStatusError carries the upstream HTTP status so it can be passed through.
func NewUpstreamStatusError(service string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamStatus,
		Message:   fmt.Sprintf("Upstream '%s' returned status %d", service, status),
		Details:   body,
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

func NewToolExecutionFailedError(tool string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolExecutionFailed,
		Message:   fmt.Sprintf("Tool '%s' failed", tool),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConversationNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationNotFound,
		Message:   "Conversation not found",
		Details:   fmt.Sprintf("conversationId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationDisabledError(notificationType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationDisabled,
		Message:   "Notification channel disabled",
		Details:   fmt.Sprintf("type: %s", notificationType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEvidenceRetrievalFailed,
		ErrCodeKnowledgeBaseUnavailable,
		ErrCodeLLMSynthesisFailed,
		ErrCodeRoutingFailed,
		ErrCodeDecompositionFailed,
		ErrCodeUpstreamUnavailable,
		ErrCodeDatabaseQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeUpstreamTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorCategory":     GetErrorCategory(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "ROUTING") || strings.Contains(codeStr, "DECOMPOSITION"):
		return "AI"
	case strings.Contains(codeStr, "PLAN") || strings.Contains(codeStr, "EVIDENCE") || strings.Contains(codeStr, "KNOWLEDGE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "TOOL"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CONVERSATION"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error to the status code the chat API answers with.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeInvalidChatRequest:
		return http.StatusBadRequest
	case ErrCodeConversationNotFound:
		return http.StatusNotFound
	case ErrCodeNotificationDisabled:
		return http.StatusServiceUnavailable
	case ErrCodeUpstreamTimeout, ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	case ErrCodeUpstreamStatus:
		if status, ok := stdErr.Metadata["status"].(int); ok && status >= 400 {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
