package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cardpayout/internal/domain"
)

type errorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Payout  *payoutResponse `json:"payout,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrResultNotPersisted):
		return http.StatusInternalServerError, "result_not_persisted"
	case errors.Is(err, domain.ErrBankRejected):
		return http.StatusUnprocessableEntity, "bank_rejected"
	case errors.Is(err, domain.ErrBankUnavailable):
		return http.StatusBadGateway, "bank_unavailable"
	case errors.Is(err, domain.ErrBadBankResponse):
		return http.StatusBadGateway, "bad_bank_response"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrMalformedCallback):
		return http.StatusBadRequest, "malformed_callback"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, domain.ErrPayoutNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
