package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardpayout/internal/bank"
	"cardpayout/internal/domain"
	"cardpayout/internal/port"
)

type payoutService struct {
	payoutRepo port.PayoutRepository
	bank       port.BankClient
	merchantID string
	logger     *slog.Logger
}

func NewPayoutService(
	payoutRepo port.PayoutRepository,
	bankClient port.BankClient,
	merchantID string,
	logger *slog.Logger,
) port.PayoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &payoutService{
		payoutRepo: payoutRepo,
		bank:       bankClient,
		merchantID: merchantID,
		logger:     logger,
	}
}

// RequestPayout creates the payout once per external id and submits it to the
// bank. A repeated external id returns the stored record without resending.
func (s *payoutService) RequestPayout(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	externalID := req.ExternalID
	if externalID == "" {
		externalID = domain.NewExternalID(req.UserID)
	}

	payout, isNew, err := s.payoutRepo.CreateIfAbsent(ctx, domain.NewPayout(externalID, req.UserID, req.Destination, req.Amount, req.Currency))
	if err != nil {
		return nil, fmt.Errorf("reserve payout %s: %w", externalID, err)
	}
	if !isNew {
		s.logger.Info("duplicate payout request",
			"event", "payout_duplicate",
			"external_id", externalID,
			"status", payout.Status,
		)
		return &domain.PayoutOutcome{Payout: payout, Created: false, Class: domain.Classify(payout.Status)}, nil
	}

	payload := map[string]any{
		"merchant_id": s.merchantID,
		"ext_id":      payout.ExternalID,
		"to_pan":      req.Destination,
		"amount":      payout.Amount.String(),
		"currency":    payout.Currency,
	}

	s.logger.Info("sending payout to bank",
		"event", "payout_submit",
		"external_id", payout.ExternalID,
		"user_id", payout.UserID,
		"amount", payout.Amount.String(),
		"currency", payout.Currency,
	)

	// Once sent, the submission cannot be recalled, so its result is
	// persisted even if the caller's context ends.
	persistCtx := context.WithoutCancel(ctx)

	resp, err := s.bank.Send(ctx, bank.TransferEndpoint, payload)
	if err != nil {
		return s.fail(persistCtx, payout, err)
	}

	res := domain.NormalizeBankResult(resp)
	if res.Status == "" {
		res.Status = domain.StatusUnknown
	}
	storeErr := s.payoutRepo.UpdateResult(persistCtx, payout.ExternalID, res)
	applyResult(payout, res)

	outcome := &domain.PayoutOutcome{Payout: payout, Created: true, Class: domain.Classify(res.Status)}
	if storeErr != nil {
		s.logger.Error("bank result not stored, payout needs reconciliation",
			"event", "payout_result_not_persisted",
			"external_id", payout.ExternalID,
			"status", res.Status,
			"bank_tx_id", res.TxID,
			"error", storeErr,
		)
		return outcome, fmt.Errorf("%w: store bank result for %s: %w", domain.ErrResultNotPersisted, payout.ExternalID, storeErr)
	}
	s.logger.Info("bank accepted payout request",
		"event", "payout_result",
		"external_id", payout.ExternalID,
		"status", res.Status,
		"class", outcome.Class.String(),
		"bank_tx_id", res.TxID,
	)

	if outcome.Class == domain.ClassFailed {
		return outcome, fmt.Errorf("%w: bank reported status %q", domain.ErrBankRejected, res.Status)
	}
	return outcome, nil
}

func (s *payoutService) fail(ctx context.Context, payout *domain.Payout, cause error) (*domain.PayoutOutcome, error) {
	res := domain.BankResult{Status: domain.StatusFailed, Error: cause.Error()}
	var rejected *bank.RejectedError
	if errors.As(cause, &rejected) {
		res.TxID = domain.NormalizeBankResult(rejected.Body).TxID
	}

	s.logger.Error("payout request failed",
		"event", "payout_failed",
		"external_id", payout.ExternalID,
		"error", cause,
	)

	if err := s.payoutRepo.UpdateResult(ctx, payout.ExternalID, res); err != nil {
		s.logger.Error("failed to mark payout failed",
			"event", "payout_update_failed",
			"external_id", payout.ExternalID,
			"error", err,
		)
		return nil, errors.Join(cause, err)
	}
	applyResult(payout, res)

	return &domain.PayoutOutcome{Payout: payout, Created: true, Class: domain.ClassFailed}, cause
}

func (s *payoutService) GetPayout(ctx context.Context, externalID string) (*domain.Payout, error) {
	return s.payoutRepo.GetByExternalID(ctx, externalID)
}

func (s *payoutService) ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error) {
	return s.payoutRepo.ListCallbacks(ctx, externalID)
}

func applyResult(p *domain.Payout, res domain.BankResult) {
	p.Status = res.Status
	if res.TxID != "" {
		tx := res.TxID
		p.BankTxID = &tx
	}
	if res.Error != "" {
		e := res.Error
		p.Error = &e
	} else {
		p.Error = nil
	}
}
