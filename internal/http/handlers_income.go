package http

import (
	"net/http"

	"plata/internal/core"
)

type incomeResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Monthly string `json:"monthly"`
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	snap := s.planner.Snapshot(r.Context(), userID)

	incomes := make([]incomeResponse, 0, len(snap.Incomes))
	for _, inc := range snap.Incomes {
		incomes = append(incomes, incomeResponse{
			ID:      inc.ID,
			Name:    inc.Name,
			Monthly: inc.Monthly.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incomes": incomes,
		"total":   snap.TotalIncome().StringFixed(2),
	})
}

type saveIncomeRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Monthly string `json:"monthly"`
}

func (s *Server) handleSaveIncome(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req saveIncomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	monthly, err := core.ParseAmount(req.Monthly)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	inc := core.Income{
		ID:      req.ID,
		Name:    sanitizeInput(req.Name),
		Monthly: monthly,
	}
	id, err := s.planner.SaveIncome(r.Context(), userID, inc)
	if err != nil {
		writePlannerError(w, r, "Failed to save income", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	id := r.PathValue("id")

	if err := s.planner.DeleteIncome(r.Context(), userID, id); err != nil {
		writePlannerError(w, r, "Failed to delete income", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
