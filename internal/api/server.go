// Package api exposes the assistant over an OpenAI-compatible HTTP surface.
package api

import (
	"context"
	"net/http"
	"time"

	"versailles-assistant/internal/assistant"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/logger"
	"versailles-assistant/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultModelName = "versailles-assistant"

type Assistant interface {
	Respond(ctx context.Context, query string, history []models.ChatMessage) (assistant.Response, error)
	Answer(ctx context.Context, query string) (models.PlannerResult, error)
	ToolPlan(ctx context.Context, query string) (models.ToolPlanResult, error)
	SelectTools(ctx context.Context, query string) (models.ToolSelectionResult, error)
	Route(ctx context.Context, query string, history []models.ChatMessage) (models.RouterOutput, error)
}

type ConversationStore interface {
	Append(ctx context.Context, id string, messages ...models.ChatMessage) error
	Get(ctx context.Context, id string) (models.Conversation, error)
}

type TranscriptMailer interface {
	SendTranscript(ctx context.Context, to string, conv models.Conversation) (string, error)
}

type Evaluator interface {
	Proxy(ctx context.Context, req llm.ProxyRequest, timeout time.Duration) (string, error)
}

// ReadyCheck reports whether a backing service is reachable.
type ReadyCheck func(ctx context.Context) error

type Config struct {
	APIKey          string
	ModelName       string
	EvaluateTimeout time.Duration
}

// Dependencies for the router. Only Assistant is required.
type Dependencies struct {
	Assistant Assistant
	Store     ConversationStore
	Mailer    TranscriptMailer
	Evaluator Evaluator
	Ready     map[string]ReadyCheck
	Logger    logger.Logger
}

type Server struct {
	config Config
	deps   Dependencies
	log    logger.Logger
	now    func() time.Time
}

func NewServer(config Config, deps Dependencies) *Server {
	if config.ModelName == "" {
		config.ModelName = defaultModelName
	}
	if config.EvaluateTimeout <= 0 {
		config.EvaluateTimeout = 300 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		config: config,
		deps:   deps,
		log:    log.With(map[string]interface{}{"component": "api"}),
		now:    time.Now,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(s.requestLog)
	if s.config.APIKey != "" {
		r.Use(apiKeyAuth(s.config.APIKey))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, "Versailles Chatbot")
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/completions", s.handleChatCompletions)
		r.Post("/plan", s.handlePlan)
		r.Post("/tools/plan", s.handleToolPlan)
		r.Post("/tools/select", s.handleSelectTools)
		r.Post("/route", s.handleRoute)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/conversations/{id}", s.handleGetConversation)
		r.Post("/conversations/{id}/email", s.handleEmailConversation)
	})
	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Ready))
	status := http.StatusOK
	for name, check := range s.deps.Ready {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}
