package http

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"kharcha/internal/core"
	"kharcha/internal/jsonstore"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.analyticsCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": created})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var patch core.TransactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.analyticsCache.Purge()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	s.analyticsCache.Purge()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted"})
}

// handleExportTransactions returns the full ledger as a JSON attachment
// suitable for re-import.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="transactions.json"`)
	writeJSON(w, http.StatusOK, transactions)
}

// handleImportTransactions replaces the ledger with the posted transactions.
// The import is all-or-nothing: one bad row rejects the whole batch. The body
// is the same JSON array the export endpoint and the legacy collection
// snapshots use.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := jsonstore.DecodeCollection[core.Transaction](r.Body)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errMalformedBody, err))
		return
	}

	if _, err := s.ledger.ImportTransactions(r.Context(), transactions); err != nil {
		writeError(w, r, err)
		return
	}
	s.analyticsCache.Purge()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transactions imported successfully"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ := core.TransactionType(r.URL.Query().Get("type"))
	if typ != "" && typ != core.Income && typ != core.Expense {
		writeError(w, r, fmt.Errorf("%w: %q", core.ErrInvalidType, typ))
		return
	}

	categories, err := s.ledger.ListCategories(r.Context(), typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
