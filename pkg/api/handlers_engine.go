package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/phase"
)

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	items, categories, err := s.scanner.Scan()
	if err != nil {
		s.log.Error("inventory scan failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "inventory scan failed")
		return
	}

	s.respondJSON(w, http.StatusOK, InventoryResponse{
		OK:         true,
		Items:      items,
		Categories: categories,
	})
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, RulesResponse{OK: true, Rules: s.rules.Rules()})
}

func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.rules.Replace(req.Rules); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, RulesResponse{OK: true, Rules: s.rules.Rules()})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var traffic firewall.Traffic
	if err := json.NewDecoder(r.Body).Decode(&traffic); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision := s.rules.Evaluate(traffic)
	s.metrics.RecordRuleEvaluation(string(decision.Action), decision.MatchedIndex >= 0)

	s.respondJSON(w, http.StatusOK, EvaluateResponse{OK: true, Decision: decision})
}

func (s *Server) handleRunPhase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.phases.Run(r.Context(), id); err != nil {
		s.respondPhaseError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, PhaseResponse{OK: true, Phases: []string{id}})
}

func (s *Server) handleRunSequence(w http.ResponseWriter, r *http.Request) {
	var req SequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Phases) == 0 {
		s.respondError(w, http.StatusBadRequest, "phases list is empty")
		return
	}

	if err := s.phases.RunSequence(r.Context(), req.Phases); err != nil {
		s.respondPhaseError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, PhaseResponse{OK: true, Phases: req.Phases})
}

func (s *Server) respondPhaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, phase.ErrPhaseRunning) {
		s.respondError(w, http.StatusConflict, "another phase is already running")
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}
