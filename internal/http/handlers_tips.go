package http

import (
	"net/http"
)

type tipResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

func (s *Server) handleNextTip(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	tip, err := s.planner.NextTip(r.Context(), userID)
	if err != nil {
		writePlannerError(w, r, "Failed to pick tip", err)
		return
	}
	if tip == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tip": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tip": tipResponse{
		ID:          tip.ID,
		Title:       tip.Title,
		Explanation: tip.Explanation,
	}})
}
