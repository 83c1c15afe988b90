package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"
)

const maxCallbackBytes = 1 << 20

// Banks differ in which header carries the callback MAC.
var signatureHeaders = []string{"X-Signature", "X-Hmac"}

type WebhookHandler struct {
	service port.WebhookService
	logger  *slog.Logger
}

func NewWebhookHandler(service port.WebhookService, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{service: service, logger: logger}
}

type webhookResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Receive acknowledges every parseable callback with 200, including orphan
// and unverified ones, so the bank stops redelivering them.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Result: "error", Error: "unreadable_body"})
		return
	}

	if _, err := h.service.Receive(r.Context(), body, callbackSignature(r)); err != nil {
		if errors.Is(err, domain.ErrMalformedCallback) {
			writeJSON(w, http.StatusBadRequest, webhookResponse{Result: "error", Error: "malformed_callback"})
			return
		}
		h.logger.Error("callback processing failed", "event", "callback_error", "error", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Result: "error", Error: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Result: "ok"})
}

func callbackSignature(r *http.Request) string {
	for _, name := range signatureHeaders {
		if sig := r.Header.Get(name); sig != "" {
			return sig
		}
	}
	return ""
}
