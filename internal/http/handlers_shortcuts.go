package http

import (
	"net/http"

	"plata/internal/core"
)

type shortcutResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	SpendType string `json:"spend_type"`
}

func (s *Server) handleListShortcuts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	snap := s.planner.Snapshot(r.Context(), userID)

	shortcuts := make([]shortcutResponse, 0, len(snap.Shortcuts))
	for _, sc := range snap.Shortcuts {
		shortcuts = append(shortcuts, shortcutResponse{
			ID:        sc.ID,
			Name:      sc.Name,
			Amount:    sc.Amount.StringFixed(2),
			Category:  sc.Category,
			SpendType: string(sc.SpendType),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"shortcuts": shortcuts})
}

type saveShortcutRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	SpendType string `json:"spend_type"`
}

func (s *Server) handleSaveShortcut(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req saveShortcutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sc := core.Shortcut{
		ID:        req.ID,
		Name:      sanitizeInput(req.Name),
		Amount:    amount,
		Category:  sanitizeInput(req.Category),
		SpendType: core.SpendType(req.SpendType),
	}
	id, err := s.planner.SaveShortcut(r.Context(), userID, sc)
	if err != nil {
		writePlannerError(w, r, "Failed to save shortcut", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteShortcut(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	id := r.PathValue("id")

	if err := s.planner.DeleteShortcut(r.Context(), userID, id); err != nil {
		writePlannerError(w, r, "Failed to delete shortcut", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleInvokeShortcut records a transaction from the template and runs
// the usual budget check on it.
func (s *Server) handleInvokeShortcut(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	id := r.PathValue("id")

	result, err := s.planner.InvokeShortcut(r.Context(), userID, id)
	if err != nil {
		writePlannerError(w, r, "Failed to invoke shortcut", err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponseFrom(result))
}
