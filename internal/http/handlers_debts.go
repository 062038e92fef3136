package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

type debtResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Balance    string `json:"balance"`
	AnnualRate string `json:"annual_rate"`
	MinPayment string `json:"min_payment"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	snap := s.planner.Snapshot(r.Context(), userID)

	debts := make([]debtResponse, 0, len(snap.Debts))
	for _, d := range snap.Debts {
		debts = append(debts, debtResponse{
			ID:         d.ID,
			Name:       d.Name,
			Balance:    d.Balance.StringFixed(2),
			AnnualRate: d.AnnualRate.StringFixed(2),
			MinPayment: d.MinPayment.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"debts": debts})
}

type saveDebtRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Balance    string `json:"balance"`
	AnnualRate string `json:"annual_rate"`
	MinPayment string `json:"min_payment"`
}

func (s *Server) handleSaveDebt(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req saveDebtRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := core.ParseAmount(req.Balance)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid balance: "+err.Error())
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.AnnualRate))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid annual rate")
		return
	}
	minPayment, err := core.ParseAmount(req.MinPayment)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid minimum payment: "+err.Error())
		return
	}

	d := core.Debt{
		ID:         req.ID,
		Name:       sanitizeInput(req.Name),
		Balance:    balance,
		AnnualRate: rate,
		MinPayment: minPayment,
	}
	id, err := s.planner.SaveDebt(r.Context(), userID, d)
	if err != nil {
		writePlannerError(w, r, "Failed to save debt", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	id := r.PathValue("id")

	if err := s.planner.DeleteDebt(r.Context(), userID, id); err != nil {
		writePlannerError(w, r, "Failed to delete debt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type debtPlansResponse struct {
	Avalanche string `json:"avalanche"`
	Snowball  string `json:"snowball"`
}

func (s *Server) handleDebtPlans(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	extra := decimal.Zero
	if v := strings.TrimSpace(r.URL.Query().Get("extra")); v != "" {
		parsed, err := core.ParseAmount(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid extra amount: "+err.Error())
			return
		}
		extra = parsed
	}

	plans := s.planner.ComputeDebtPlans(r.Context(), userID, extra)
	writeJSON(w, http.StatusOK, debtPlansResponse{
		Avalanche: plans.Avalanche,
		Snowball:  plans.Snowball,
	})
}
