package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type BalanceHandler struct {
	withdraw port.WithdrawService
	logger   *slog.Logger
}

func NewBalanceHandler(withdraw port.WithdrawService, logger *slog.Logger) *BalanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceHandler{withdraw: withdraw, logger: logger}
}

type balanceResponse struct {
	UserID    string     `json:"user_id"`
	Amount    string     `json:"amount"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func toBalanceResponse(b *domain.Balance) balanceResponse {
	resp := balanceResponse{UserID: b.UserID, Amount: b.Amount.String()}
	if !b.UpdatedAt.IsZero() {
		t := b.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	bal, err := h.withdraw.Balance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.logger.Error("balance lookup failed", "event", "balance_error", "error", err)
		status, code := errorStatus(err)
		writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(bal))
}

func (h *BalanceHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	bal, err := h.withdraw.TopUp(r.Context(), chi.URLParam(r, "userID"), req.Amount)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("top up failed", "event", "balance_error", "error", err)
		}
		writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(bal))
}
