package handler

import (
	"net/http"

	"github.com/mcoot/shellgame/internal/api/middleware"
	"github.com/mcoot/shellgame/internal/api/request"
	"github.com/mcoot/shellgame/internal/api/response"
	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/services/ledger"
)

// ResultsHandler handles the ledger and leaderboard
type ResultsHandler struct {
	ledgerService *ledger.Service
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(ledgerService *ledger.Service) *ResultsHandler {
	return &ResultsHandler{
		ledgerService: ledgerService,
	}
}

// List handles GET /api/results
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	results, err := h.ledgerService.Results(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ResultEntriesFromModel(results))
}

// Report handles POST /api/results (practice mode)
func (h *ResultsHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req request.ResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := middleware.AuthorizeUsername(r.Context(), req.Username); err != nil {
		WriteError(w, err)
		return
	}

	entry, err := h.ledgerService.Record(r.Context(), req.Username, model.Outcome(req.Outcome))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ResultEntryFromModel(*entry))
}

// Leaderboard handles GET /api/leaderboard
func (h *ResultsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.ledgerService.Leaderboard(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(board))
}
