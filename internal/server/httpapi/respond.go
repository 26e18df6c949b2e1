package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shipledger/internal/common"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps an error kind to its HTTP status. An inactive account is
// reported as 403 rather than 401.
func statusFor(err error) int {
	if errors.Is(err, common.ErrAccountInactive) {
		return http.StatusForbidden
	}
	switch common.Kind(err) {
	case common.ErrValidation:
		return http.StatusBadRequest
	case common.ErrAuth:
		return http.StatusUnauthorized
	case common.ErrForbidden:
		return http.StatusForbidden
	case common.ErrNotFound:
		return http.StatusNotFound
	case common.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"message": ...}. Dependency failures never
// expose their detail.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Server error"
	}
	writeMessage(w, status, msg)
}
