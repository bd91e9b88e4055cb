package http

import (
	"fmt"
	"net/http"

	"tally/internal/core"
)

type adviceRequest struct {
	Prompt string `json:"prompt"`
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(r.Context(), w, fmt.Errorf("%w: advice generator not configured", core.ErrUpstream))
		return
	}

	var req adviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	text, err := s.advisor.GetAdvice(r.Context(), req.Prompt)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, adviceResponse{Advice: text})
}
