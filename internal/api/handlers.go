package api

import (
	"errors"
	"net/http"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/models"

	"github.com/go-chi/chi/v5"
)

type queryRequest struct {
	Query   string               `json:"query"`
	History []models.ChatMessage `json:"history,omitempty"`
}

type emailRequest struct {
	To string `json:"to"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Assistant.Answer(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleToolPlan(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Assistant.ToolPlan(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSelectTools(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Assistant.SelectTools(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.deps.Assistant.Route(r.Context(), req.Query, req.History)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleEvaluate bypasses the assistant and forwards the request to the LLM.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Evaluator == nil {
		s.writeError(w, r, apperrors.NewInternalError(errors.New("LLM client not configured")))
		return
	}
	var req llm.ProxyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, r, apperrors.NewInvalidChatRequestError("messages must not be empty"))
		return
	}

	answer, err := s.deps.Evaluator.Proxy(r.Context(), req, s.config.EvaluateTimeout)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleEmailConversation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mailer == nil {
		s.writeError(w, r, apperrors.NewNotificationDisabledError("email"))
		return
	}
	var req emailRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, err := s.conversation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	messageID, err := s.deps.Mailer.SendTranscript(r.Context(), req.To, conv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "message_id": messageID})
}

func (s *Server) conversation(r *http.Request) (models.Conversation, error) {
	id := chi.URLParam(r, "id")
	if s.deps.Store == nil {
		return models.Conversation{}, apperrors.NewConversationNotFoundError(id)
	}
	return s.deps.Store.Get(r.Context(), id)
}
