package http

import (
	"net/http"

	"finvoice/internal/core"
	"finvoice/internal/ledger"
)

type expenseRequest struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
	VoiceNote   string    `json:"voiceNote"`
}

type expensePatchRequest struct {
	Amount      *float64   `json:"amount"`
	Category    *string    `json:"category"`
	Description *string    `json:"description"`
	Date        *core.Date `json:"date"`
	VoiceNote   *string    `json:"voiceNote"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.coord.Expenses(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense, err := s.coord.AddExpense(r.Context(), ledger.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		VoiceNote:   req.VoiceNote,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense, err := s.coord.UpdateExpense(r.Context(), r.PathValue("id"), ledger.ExpensePatch{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		VoiceNote:   req.VoiceNote,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type budgetRequest struct {
	Category string            `json:"category"`
	Amount   float64           `json:"amount"`
	Period   core.BudgetPeriod `json:"period"`
}

type budgetPatchRequest struct {
	Category *string            `json:"category"`
	Amount   *float64           `json:"amount"`
	Period   *core.BudgetPeriod `json:"period"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.coord.Budgets(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := s.coord.AddBudget(r.Context(), ledger.BudgetInput{
		Category: req.Category,
		Amount:   req.Amount,
		Period:   req.Period,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := s.coord.UpdateBudget(r.Context(), r.PathValue("id"), ledger.BudgetPatch{
		Category: req.Category,
		Amount:   req.Amount,
		Period:   req.Period,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalRequest struct {
	Title        string    `json:"title"`
	TargetAmount float64   `json:"targetAmount"`
	Deadline     core.Date `json:"deadline"`
	Category     string    `json:"category"`
}

type goalPatchRequest struct {
	Title        *string    `json:"title"`
	TargetAmount *float64   `json:"targetAmount"`
	Deadline     *core.Date `json:"deadline"`
	Category     *string    `json:"category"`
}

type contributionRequest struct {
	Amount float64   `json:"amount"`
	Note   string    `json:"note"`
	Date   core.Date `json:"date"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.coord.Goals(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := s.coord.AddGoal(r.Context(), ledger.GoalInput{
		Title:        req.Title,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
		Category:     req.Category,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := s.coord.UpdateGoal(r.Context(), r.PathValue("id"), ledger.GoalPatch{
		Title:        req.Title,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
		Category:     req.Category,
	})
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := s.coord.ContributeToGoal(r.Context(), r.PathValue("id"), req.Amount, req.Note, req.Date)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}
