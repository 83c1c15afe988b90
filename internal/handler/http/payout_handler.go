package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const idempotencyHeader = "Idempotency-Key"

type PayoutHandler struct {
	withdraw port.WithdrawService
	payouts  port.PayoutService
	currency string
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPayoutHandler serves the payout endpoints. currency is applied to
// requests that do not name one.
func NewPayoutHandler(withdraw port.WithdrawService, payouts port.PayoutService, currency string, logger *slog.Logger) *PayoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &PayoutHandler{
		withdraw: withdraw,
		payouts:  payouts,
		currency: currency,
		validate: validator.New(),
		logger:   logger,
	}
}

type payoutResponse struct {
	ExternalID  string    `json:"external_id"`
	UserID      string    `json:"user_id"`
	Destination string    `json:"destination"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	StatusClass string    `json:"status_class"`
	BankTxID    *string   `json:"bank_tx_id,omitempty"`
	Error       *string   `json:"error,omitempty"`
	Created     *bool     `json:"created,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPayoutResponse(p *domain.Payout) *payoutResponse {
	return &payoutResponse{
		ExternalID:  p.ExternalID,
		UserID:      p.UserID,
		Destination: p.MaskedDestination,
		Amount:      p.Amount.String(),
		Currency:    p.Currency,
		Status:      string(p.Status),
		StatusClass: domain.Classify(p.Status).String(),
		BankTxID:    p.BankTxID,
		Error:       p.Error,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type callbackResponse struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	Verified   bool            `json:"verified"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Create debits the user and requests the payout. The external id comes
// from the body or, failing that, the Idempotency-Key header.
func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PayoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ExternalID == "" {
		req.ExternalID = r.Header.Get(idempotencyHeader)
	}
	if req.Currency == "" {
		req.Currency = h.currency
	}
	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: verrs[0].Field() + " " + verrs[0].Tag()})
			return
		}
		writeError(w, http.StatusBadRequest, "validation_failed")
		return
	}

	outcome, err := h.withdraw.Withdraw(r.Context(), &req)
	if err != nil {
		status, code := errorStatus(err)
		resp := errorResponse{Error: code}
		if outcome != nil && outcome.Payout != nil {
			resp.Payout = toPayoutResponse(outcome.Payout)
		}
		if status == http.StatusInternalServerError {
			h.logger.Error("payout request failed", "event", "payout_request_error", "external_id", req.ExternalID, "error", err)
		}
		writeJSON(w, status, resp)
		return
	}

	resp := toPayoutResponse(outcome.Payout)
	created := outcome.Created
	resp.Created = &created

	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	payout, err := h.payouts.GetPayout(r.Context(), chi.URLParam(r, "externalID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayoutResponse(payout))
}

func (h *PayoutHandler) Callbacks(w http.ResponseWriter, r *http.Request) {
	callbacks, err := h.payouts.ListCallbacks(r.Context(), chi.URLParam(r, "externalID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]callbackResponse, 0, len(callbacks))
	for _, cb := range callbacks {
		payload := json.RawMessage(cb.Payload)
		if !json.Valid(payload) {
			quoted, _ := json.Marshal(cb.Payload)
			payload = quoted
		}
		out = append(out, callbackResponse{
			ID:         cb.ID.String(),
			Payload:    payload,
			Verified:   cb.Verified,
			ReceivedAt: cb.ReceivedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PayoutHandler) fail(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "event", "http_handler_error", "error", err)
	}
	writeError(w, status, code)
}
