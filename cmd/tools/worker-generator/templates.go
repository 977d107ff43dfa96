package main

const configTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ .TimeoutExpr }},
	}
}
`

const modelsTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `// internal/workers/{{ .Category }}/{{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"{{ .Module }}/internal/common/camunda"
	apperrors "{{ .Module }}/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

var ErrNotImplemented = errors.New("NOT_IMPLEMENTED")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		logger: logger,
		errors: apperrors.NewErrorHandler(logger),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidChatRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// TODO: implement {{ .DisplayName }}.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, apperrors.NewInternalError(ErrNotImplemented)
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"{{ .Module }}/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

type testLogger struct {
	logger.Logger
}

func (l *testLogger) With(fields map[string]interface{}) Logger {
	return &testLogger{l.Logger.With(fields)}
}

func TestExecute_NotImplemented(t *testing.T) {
	h := NewHandler(LoadConfig(), &testLogger{logger.NewTestLogger(t)})

	_, err := h.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}
`
