package http

import (
	"net/http"
	"strings"

	"finvoice/internal/core"
	"finvoice/internal/identity"
	"finvoice/internal/insight"
)

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := s.coord.Investments(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investments)
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var inv core.Investment
	if err := decodeBody(r, &inv); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.coord.AddInvestment(r.Context(), inv)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	var inv core.Investment
	if err := decodeBody(r, &inv); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inv.ID = r.PathValue("id")
	updated, err := s.coord.UpdateInvestment(r.Context(), inv)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteInvestment(r.Context(), r.PathValue("id")); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.coord.Cards(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var card core.Card
	if err := decodeBody(r, &card); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.coord.AddCard(r.Context(), card)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var card core.Card
	if err := decodeBody(r, &card); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	card.ID = r.PathValue("id")
	updated, err := s.coord.UpdateCard(r.Context(), card)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Income sources feed the insight engine but are not ledger records; they
// live in server memory per user until replaced wholesale.
func (s *Server) incomeFor(userID string) []core.IncomeSource {
	s.incomeMu.RLock()
	defer s.incomeMu.RUnlock()
	return s.income[userID]
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.FromContext(r.Context())
	sources := s.incomeFor(userID)
	if sources == nil {
		sources = []core.IncomeSource{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handlePutIncome(w http.ResponseWriter, r *http.Request) {
	var sources []core.IncomeSource
	if err := decodeBody(r, &sources); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range sources {
		if strings.TrimSpace(sources[i].Source) == "" {
			writeError(w, http.StatusBadRequest, "income source name is required")
			return
		}
	}

	userID, _ := identity.FromContext(r.Context())
	s.incomeMu.Lock()
	s.income[userID] = sources
	s.incomeMu.Unlock()

	s.reports.Delete(userID)
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.FromContext(r.Context())
	summary, err := s.coord.Summary(r.Context(), s.incomeFor(userID))
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.FromContext(r.Context())
	if report, ok := s.reports.Get(userID); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	snap, err := s.coord.Snapshot(r.Context(), s.incomeFor(userID))
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	report := s.engine.Evaluate(snap)
	s.reports.Set(userID, report)
	writeJSON(w, http.StatusOK, report)
}

type interactionRequest struct {
	Action   string          `json:"action"`
	Category string          `json:"category"`
	Outcome  insight.Outcome `json:"outcome"`
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	if req.Outcome != insight.OutcomePositive && req.Outcome != insight.OutcomeNegative {
		writeError(w, http.StatusBadRequest, "outcome must be positive or negative")
		return
	}
	s.engine.RecordInteraction(req.Action, req.Category, req.Outcome)
	w.WriteHeader(http.StatusAccepted)
}

type extractRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtractTranscript(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.extractor.FromTranscript(req.Text))
}

func (s *Server) handleExtractReceipt(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.extractor.FromReceipt(req.Text))
}
