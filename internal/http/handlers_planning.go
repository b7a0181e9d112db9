package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"kharcha/internal/core"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	recurring, err := s.planning.ListRecurring(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recurring == nil {
		recurring = []core.RecurringTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": recurring})
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var rt core.RecurringTransaction
	if err := decodeJSON(r, &rt); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.planning.CreateRecurring(r.Context(), rt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.planning.DeleteRecurring(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Recurring transaction deleted"})
}

func (s *Server) handleListSavingsGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.planning.ListSavingsGoals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"savingsGoals": goals})
}

func (s *Server) handleCreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var g core.SavingsGoal
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.planning.CreateSavingsGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type contributeRequest struct {
	Amount core.Amount `json:"amount"`
}

func (s *Server) handleContributeToSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.planning.ContributeToSavingsGoal(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSavingsGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.planning.DeleteSavingsGoal(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Savings goal deleted"})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.planning.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.FinancialGoal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g core.FinancialGoal
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.planning.CreateGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var g core.FinancialGoal
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, r, err)
		return
	}
	g.ID = mux.Vars(r)["id"]

	updated, err := s.planning.UpdateGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.planning.DeleteGoal(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Goal deleted"})
}

func (s *Server) handleListBillReminders(w http.ResponseWriter, r *http.Request) {
	bills, err := s.planning.ListBillReminders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"billReminders": bills})
}

func (s *Server) handleCreateBillReminder(w http.ResponseWriter, r *http.Request) {
	var b core.BillReminder
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.planning.CreateBillReminder(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateBillReminder(w http.ResponseWriter, r *http.Request) {
	var patch core.BillReminderPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.planning.UpdateBillReminder(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBillReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.planning.DeleteBillReminder(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bill reminder deleted"})
}
