package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"kharcha/internal/core"
)

type createSplitRequest struct {
	TotalAmount  core.Amount            `json:"totalAmount"`
	Description  string                 `json:"description"`
	Participants []string               `json:"participants"`
	SplitType    core.SplitType         `json:"splitType"`
	Shares       map[string]core.Amount `json:"shares,omitempty"`
}

type settleRequest struct {
	ParticipantName string `json:"participantName"`
}

func (s *Server) handleListSplits(w http.ResponseWriter, r *http.Request) {
	splits, err := s.splits.ListSplits(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if splits == nil {
		splits = []core.ExpenseSplit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenseSplits": splits})
}

func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	var req createSplitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.splits.CreateSplit(r.Context(), req.TotalAmount, req.Description, req.Participants, req.SplitType, req.Shares)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSplit(w http.ResponseWriter, r *http.Request) {
	sp, err := s.splits.GetSplit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleSettleSplit(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sp, err := s.splits.SettleSplit(r.Context(), mux.Vars(r)["id"], req.ParticipantName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}
