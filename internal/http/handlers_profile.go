package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"plata/internal/budget"
	"plata/internal/core"
)

type createProfileRequest struct {
	Goal        string            `json:"goal"`
	Percentages map[string]string `json:"percentages"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req createProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	percentages := budget.Default()
	if len(req.Percentages) > 0 {
		raw, err := decimalMap(req.Percentages)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		percentages = make(budget.Percentages, len(raw))
		for k, v := range raw {
			percentages[core.SpendType(k).Normalize()] = v
		}
	}

	if err := s.planner.CreateProfile(r.Context(), userID, sanitizeInput(req.Goal), percentages); err != nil {
		writePlannerError(w, r, "Failed to create profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

type setGoalRequest struct {
	Goal string `json:"goal"`
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req setGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		writeError(w, http.StatusUnprocessableEntity, "goal cannot be empty")
		return
	}

	if err := s.planner.SetGoal(r.Context(), userID, sanitizeInput(req.Goal)); err != nil {
		writePlannerError(w, r, "Failed to set goal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setPercentagesRequest struct {
	Percentages map[string]string `json:"percentages"`
}

func (s *Server) handleSetPercentages(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req setPercentagesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := decimalMap(req.Percentages)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	percentages := make(budget.Percentages, len(raw))
	for k, v := range raw {
		percentages[core.SpendType(k).Normalize()] = v
	}

	if err := s.planner.SetPercentages(r.Context(), userID, percentages); err != nil {
		writePlannerError(w, r, "Failed to set percentages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type bucketOverview struct {
	Percentage string `json:"percentage"`
	Allocated  string `json:"allocated"`
	Spent      string `json:"spent"`
	Remaining  string `json:"remaining"`
}

type overviewResponse struct {
	Goal              string                    `json:"goal"`
	TotalIncome       string                    `json:"total_income"`
	Buckets           map[string]bucketOverview `json:"buckets"`
	PendingOverspends map[string]string         `json:"pending_overspends"`
	DebtCount         int                       `json:"debt_count"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	snap := s.planner.Snapshot(r.Context(), userID)

	now := time.Now()
	allocations := snap.Allocations()
	spent := snap.MonthToDate(now)

	resp := overviewResponse{
		Goal:              snap.Goal,
		TotalIncome:       snap.TotalIncome().StringFixed(2),
		Buckets:           make(map[string]bucketOverview, len(allocations)),
		PendingOverspends: make(map[string]string, len(snap.PendingOverspends)),
		DebtCount:         len(snap.Debts),
	}
	for _, st := range core.SpendTypes() {
		resp.Buckets[string(st)] = bucketOverview{
			Percentage: snap.Percentages[st].StringFixed(4),
			Allocated:  allocations[st].StringFixed(2),
			Spent:      spent[st].StringFixed(2),
			Remaining:  allocations[st].Sub(spent[st]).StringFixed(2),
		}
	}
	for st, amount := range snap.PendingOverspends {
		resp.PendingOverspends[string(st)] = amount.StringFixed(2)
	}

	writeJSON(w, http.StatusOK, resp)
}

type reportResponse struct {
	MonthKey string `json:"month_key"`
	Text     string `json:"text"`
}

// handleMonthlyReport renders the month summary as user-facing text.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	snap := s.planner.Snapshot(r.Context(), userID)

	now := time.Now()
	allocations := snap.Allocations()
	spent := snap.MonthToDate(now)

	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de %s\n\n", now.Format("2006-01"))
	fmt.Fprintf(&b, "Ingreso mensual total: %s\n\n", core.FormatMoney(snap.TotalIncome()))
	for _, st := range core.SpendTypes() {
		remaining := allocations[st].Sub(spent[st])
		fmt.Fprintf(&b, "%s: gastado %s de %s (disponible %s)\n",
			st, core.FormatMoney(spent[st]), core.FormatMoney(allocations[st]), core.FormatMoney(remaining))
	}
	totalSpent := spent[core.Necesidades].Add(spent[core.Deseos])
	net := snap.TotalIncome().Sub(totalSpent).Sub(spent[core.Inversion])
	fmt.Fprintf(&b, "\nTotal gastado (Necesidades + Deseos): %s\n", core.FormatMoney(totalSpent))
	fmt.Fprintf(&b, "Balance neto (Ingresos - Gastos - Aportaciones): %s\n", core.FormatMoney(net))
	for st, amount := range snap.PendingOverspends {
		fmt.Fprintf(&b, "Sobregiro pendiente en %s: %s\n", st, core.FormatMoney(amount))
	}
	if snap.Goal != "" {
		fmt.Fprintf(&b, "\nMeta principal: %s\n", snap.Goal)
	}

	writeJSON(w, http.StatusOK, reportResponse{
		MonthKey: now.Format("2006-01"),
		Text:     b.String(),
	})
}

// writePlannerError maps service errors onto HTTP statuses.
func writePlannerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
