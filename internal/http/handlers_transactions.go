package http

import (
	"net/http"
	"time"

	"plata/internal/core"
	"plata/internal/services"
)

type recordTransactionRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	SpendType   string `json:"spend_type"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type moveOptionResponse struct {
	Source    string `json:"source"`
	Available string `json:"available"`
}

type recordTransactionResponse struct {
	TransactionID string               `json:"transaction_id"`
	Status        string               `json:"status"`
	SpendType     string               `json:"spend_type"`
	Remaining     string               `json:"remaining"`
	Overage       string               `json:"overage,omitempty"`
	Options       []moveOptionResponse `json:"options,omitempty"`
	Resolved      bool                 `json:"resolved"`
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req recordTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx := core.Transaction{
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		SpendType:   core.SpendType(req.SpendType),
		Description: sanitizeInput(req.Description),
	}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
		tx.Date = parsed
	}

	result, err := s.planner.RecordTransaction(r.Context(), userID, tx)
	if err != nil {
		writePlannerError(w, r, "Failed to record transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, recordResponseFrom(result))
}

func recordResponseFrom(result services.RecordResult) recordTransactionResponse {
	resp := recordTransactionResponse{
		TransactionID: result.TransactionID,
		Status:        string(result.Status),
		SpendType:     string(result.SpendType),
		Remaining:     result.Remaining.StringFixed(2),
		Resolved:      result.Resolved,
	}
	if result.Status == services.StatusOverBudget {
		resp.Overage = result.Overage.StringFixed(2)
		for _, opt := range result.Options {
			resp.Options = append(resp.Options, moveOptionResponse{
				Source:    string(opt.Source),
				Available: opt.Available.StringFixed(2),
			})
		}
	}
	return resp
}

type resolveOverspendRequest struct {
	Leave  bool   `json:"leave"`
	Source string `json:"source"`
	Amount string `json:"amount"`
}

type resolveOverspendResponse struct {
	Resolved         bool   `json:"resolved"`
	Suggested        string `json:"suggested,omitempty"`
	RemainingPending string `json:"remaining_pending,omitempty"`
}

func (s *Server) handleResolveOverspend(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req resolveOverspendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	choice := services.Choice{
		Leave:  req.Leave,
		Source: core.SpendType(req.Source),
	}
	if req.Amount != "" {
		amount, err := core.ParseAmount(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		choice.Amount = amount
		choice.HasAmount = true
	}

	result, err := s.planner.ResolveOverspend(r.Context(), userID, choice)
	if err != nil {
		writePlannerError(w, r, "Failed to resolve overspend", err)
		return
	}

	resp := resolveOverspendResponse{Resolved: result.Resolved}
	if result.Suggested.Sign() > 0 {
		resp.Suggested = result.Suggested.StringFixed(2)
	}
	if result.Resolved {
		resp.RemainingPending = result.RemainingPending.StringFixed(2)
	}
	writeJSON(w, http.StatusOK, resp)
}
