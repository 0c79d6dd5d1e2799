package handler

import (
	"net/http"

	"github.com/mcoot/shellgame/internal/api/request"
	"github.com/mcoot/shellgame/internal/api/response"
	"github.com/mcoot/shellgame/internal/services/identity"
)

// AccountHandler handles registration and login
type AccountHandler struct {
	identityService *identity.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(identityService *identity.Service) *AccountHandler {
	return &AccountHandler{
		identityService: identityService,
	}
}

// Register handles POST /api/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	account, err := h.identityService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AccountFromModel(account))
}

// Login handles POST /api/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	account, err := h.identityService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	token, expiresAt, err := h.identityService.IssueToken(account.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{
		Account:   response.AccountFromModel(account),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
