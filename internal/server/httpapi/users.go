package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/services"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type createUserResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type toggleUserResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	IsActive int    `json:"is_active"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.users.CreateAccount(r.Context(), actor, services.NewAccount{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createUserResponse{Message: "User created successfully", UserID: account.ID})
}

func (h *Handler) toggleUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	active, err := h.users.ToggleActive(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toggleUserResponse{Message: "User deactivated successfully", UserID: id}
	if active {
		resp.Message, resp.IsActive = "User activated successfully", 1
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	logs, err := h.audit.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	if logs == nil {
		logs = []*models.AuditLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}
