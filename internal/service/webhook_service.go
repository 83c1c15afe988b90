package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"
	"cardpayout/internal/signer"

	"github.com/google/uuid"
)

type WebhookConfig struct {
	// Secret verifies inbound callbacks. It must differ from the outbound
	// signing secret. Empty accepts every callback as verified.
	Secret string
	// ApplyUnverified lets callbacks that failed verification change payout state.
	ApplyUnverified bool
}

type webhookService struct {
	payoutRepo port.PayoutRepository
	notifier   port.Notifier
	cfg        WebhookConfig
	logger     *slog.Logger
}

func NewWebhookService(
	payoutRepo port.PayoutRepository,
	notifier port.Notifier,
	cfg WebhookConfig,
	logger *slog.Logger,
) port.WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &webhookService{
		payoutRepo: payoutRepo,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Receive records every parseable callback and merges it into the matching
// payout. Only malformed bodies and storage failures return an error.
func (s *webhookService) Receive(ctx context.Context, body []byte, signature string) (*domain.ReceiveResult, error) {
	fields, err := decodeCallback(body)
	if err != nil {
		s.logger.Warn("invalid callback payload", "event", "callback_malformed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}

	res := domain.NormalizeBankResult(fields)
	result := &domain.ReceiveResult{
		ExternalID: res.ExternalID,
		Verified:   s.verify(body, signature),
	}

	cb := &domain.Callback{
		ID:         uuid.New(),
		Payload:    string(body),
		Verified:   result.Verified,
		ReceivedAt: time.Now().UTC(),
	}
	if res.ExternalID != "" {
		target := res.ExternalID
		cb.TargetExternalID = &target
	}
	if err := s.payoutRepo.RecordCallback(ctx, cb); err != nil {
		return nil, fmt.Errorf("record callback: %w", err)
	}

	log := s.logger.With("external_id", res.ExternalID, "verified", result.Verified, "status", res.Status)

	if res.ExternalID == "" {
		log.Warn("callback without external id", "event", "callback_orphan")
		return result, nil
	}

	payout, err := s.payoutRepo.GetByExternalID(ctx, res.ExternalID)
	if errors.Is(err, domain.ErrPayoutNotFound) {
		log.Warn("callback for unknown payout", "event", "callback_orphan")
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payout %s: %w", res.ExternalID, err)
	}
	result.Matched = true

	if !result.Verified && !s.cfg.ApplyUnverified {
		log.Warn("unverified callback not applied", "event", "callback_unverified")
		return result, nil
	}
	if res.Status == "" {
		log.Info("callback carries no status", "event", "callback_ignored")
		return result, nil
	}
	if res.Status == payout.Status {
		log.Debug("callback status already stored", "event", "callback_duplicate")
		return result, nil
	}

	changed, err := s.payoutRepo.MergeResult(ctx, res.ExternalID, res)
	if err != nil {
		return nil, fmt.Errorf("merge callback into %s: %w", res.ExternalID, err)
	}
	if !changed {
		log.Debug("callback status already stored", "event", "callback_duplicate")
		return result, nil
	}
	result.Applied = true

	log.Info("payout updated from callback",
		"event", "callback_applied",
		"previous_status", payout.Status,
	)

	applyResult(payout, res)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, payout.UserID, outcomeMessage(payout)); err != nil {
			log.Warn("notification failed", "event", "notify_failed", "error", err)
		}
	}
	return result, nil
}

func (s *webhookService) verify(body []byte, signature string) bool {
	if s.cfg.Secret == "" {
		return true
	}
	return signer.Verify(body, signature, s.cfg.Secret)
}

func decodeCallback(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("callback is not a json object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after callback object")
	}
	return fields, nil
}
