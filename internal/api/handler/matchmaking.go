package handler

import (
	"net/http"

	"github.com/mcoot/shellgame/internal/api/middleware"
	"github.com/mcoot/shellgame/internal/api/request"
	"github.com/mcoot/shellgame/internal/api/response"
	"github.com/mcoot/shellgame/internal/services/matchmaking"
)

// MatchmakingHandler handles the waiting list, session polling and guesses
type MatchmakingHandler struct {
	manager *matchmaking.Manager
}

// NewMatchmakingHandler creates a new matchmaking handler
func NewMatchmakingHandler(manager *matchmaking.Manager) *MatchmakingHandler {
	return &MatchmakingHandler{
		manager: manager,
	}
}

// Join handles POST /api/join-waiting-list
func (h *MatchmakingHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.WaitingListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := middleware.AuthorizeUsername(r.Context(), req.Username); err != nil {
		WriteError(w, err)
		return
	}

	outcome, err := h.manager.Join(r.Context(), req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.JoinResponseFromModel(outcome))
}

// Leave handles POST /api/leave-waiting-list
func (h *MatchmakingHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req request.WaitingListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := middleware.AuthorizeUsername(r.Context(), req.Username); err != nil {
		WriteError(w, err)
		return
	}

	remaining, err := h.manager.Leave(r.Context(), req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.WaitingList{WaitingList: response.NonNil(remaining)})
}

// Session handles GET /api/session
func (h *MatchmakingHandler) Session(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Snapshot(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionState{
		Session:     response.SessionFromModel(snap.Session),
		WaitingList: response.NonNil(snap.WaitingList),
	})
}

// Guess handles POST /api/guess
func (h *MatchmakingHandler) Guess(w http.ResponseWriter, r *http.Request) {
	var req request.GuessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Position == nil {
		WriteError(w, NewInvalidRequestError("position is required"))
		return
	}
	if err := middleware.AuthorizeUsername(r.Context(), req.Username); err != nil {
		WriteError(w, err)
		return
	}

	outcome, err := h.manager.SubmitGuess(r.Context(), req.Username, *req.Position)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuessResponseFromModel(outcome))
}
