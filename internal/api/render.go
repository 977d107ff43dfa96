package api

import (
	"encoding/json"
	"net/http"

	apperrors "versailles-assistant/internal/common/errors"
)

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	stdErr := apperrors.Normalize(err)

	detail := stdErr.Message
	if stdErr.Details != "" {
		detail += ": " + stdErr.Details
	}

	fields := map[string]interface{}{
		"path":   r.URL.Path,
		"status": status,
		"code":   string(stdErr.Code),
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", fields)
	} else {
		s.log.Warn("request rejected", fields)
	}
	writeJSON(w, status, errorBody{Detail: detail, Code: string(stdErr.Code)})
}

// decode rejects unknown shapes with a 400.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewInvalidChatRequestError("malformed JSON body: " + err.Error())
	}
	return nil
}
