package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/google/uuid"
)

type chatCompletionRequest struct {
	Model          string               `json:"model"`
	Messages       []models.ChatMessage `json:"messages"`
	Temperature    *float32             `json:"temperature,omitempty"`
	MaxTokens      *int                 `json:"max_tokens,omitempty"`
	Stream         bool                 `json:"stream"`
	ConversationID string               `json:"conversation_id,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      *models.ChatMessage `json:"message,omitempty"`
	Delta        *chatDelta          `json:"delta,omitempty"`
	FinishReason *string             `json:"finish_reason"`
}

type chatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletion struct {
	ID             string       `json:"id"`
	Object         string       `json:"object"`
	Created        int64        `json:"created"`
	Model          string       `json:"model"`
	Choices        []chatChoice `json:"choices"`
	Usage          *chatUsage   `json:"usage,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, r, apperrors.NewInvalidChatRequestError("messages must not be empty"))
		return
	}

	last := req.Messages[len(req.Messages)-1]
	history := req.Messages[:len(req.Messages)-1]

	resp, err := s.deps.Assistant.Respond(r.Context(), last.Content, history)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conversationID := s.persistTurn(r, req.ConversationID, last, resp.Answer)

	completion := chatCompletion{
		ID:             "chatcmpl-" + uuid.NewString(),
		Created:        s.now().Unix(),
		Model:          s.config.ModelName,
		ConversationID: conversationID,
	}
	if req.Stream {
		s.streamCompletion(w, completion, resp.Answer)
		return
	}

	stop := "stop"
	completion.Object = "chat.completion"
	completion.Choices = []chatChoice{{
		Message:      &models.ChatMessage{Role: models.RoleAssistant, Content: resp.Answer},
		FinishReason: &stop,
	}}
	completion.Usage = &chatUsage{}
	writeJSON(w, http.StatusOK, completion)
}

// persistTurn stores the user message and the answer. It returns the
// conversation id, or "" when no store is configured or the write failed.
func (s *Server) persistTurn(r *http.Request, id string, question models.ChatMessage, answer string) string {
	if s.deps.Store == nil {
		return ""
	}
	if id == "" {
		id = uuid.NewString()
	}
	err := s.deps.Store.Append(r.Context(), id,
		question,
		models.ChatMessage{Role: models.RoleAssistant, Content: answer},
	)
	if err != nil {
		s.log.Warn("failed to persist conversation turn", map[string]interface{}{
			"conversationId": id,
			"error":          err.Error(),
		})
		return ""
	}
	return id
}

// streamCompletion sends the answer as chat.completion.chunk frames: the role,
// the content, an empty delta carrying finish_reason, then [DONE].
func (s *Server) streamCompletion(w http.ResponseWriter, base chatCompletion, answer string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	base.Object = "chat.completion.chunk"

	stop := "stop"
	frames := []chatChoice{
		{Delta: &chatDelta{Role: models.RoleAssistant}},
		{Delta: &chatDelta{Content: answer}},
		{Delta: &chatDelta{}, FinishReason: &stop},
	}
	for _, choice := range frames {
		chunk := base
		chunk.Choices = []chatChoice{choice}
		payload, err := json.Marshal(chunk)
		if err != nil {
			s.log.Error("failed to encode stream chunk", map[string]interface{}{"error": err.Error()})
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
