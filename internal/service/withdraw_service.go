package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"

	"github.com/shopspring/decimal"
)

// withdrawService owns the balance side of a payout: it debits before the
// payout is requested and credits the amount back whenever no new payout
// went through.
type withdrawService struct {
	payouts     port.PayoutService
	balanceRepo port.BalanceRepository
	notifier    port.Notifier
	logger      *slog.Logger
}

func NewWithdrawService(
	payouts port.PayoutService,
	balanceRepo port.BalanceRepository,
	notifier port.Notifier,
	logger *slog.Logger,
) port.WithdrawService {
	if logger == nil {
		logger = slog.Default()
	}
	return &withdrawService{
		payouts:     payouts,
		balanceRepo: balanceRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *withdrawService) Withdraw(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, domain.ErrInvalidAmount
	}

	r := *req
	if r.ExternalID == "" {
		r.ExternalID = domain.NewExternalID(r.UserID)
	} else {
		// Retried calls with a known id are answered without touching the balance.
		existing, err := s.payouts.GetPayout(ctx, r.ExternalID)
		if err == nil {
			return &domain.PayoutOutcome{Payout: existing, Created: false, Class: domain.Classify(existing.Status)}, nil
		}
		if !errors.Is(err, domain.ErrPayoutNotFound) {
			return nil, fmt.Errorf("lookup payout %s: %w", r.ExternalID, err)
		}
	}

	if err := s.balanceRepo.Debit(ctx, r.UserID, r.Amount); err != nil {
		return nil, err
	}

	outcome, err := s.payouts.RequestPayout(ctx, &r)
	if errors.Is(err, domain.ErrResultNotPersisted) {
		// The bank may have paid out: the debit stays until the payout is reconciled.
		s.logger.Error("payout outcome unknown, debit kept",
			"event", "payout_needs_reconciliation",
			"user_id", r.UserID,
			"external_id", r.ExternalID,
			"amount", r.Amount.String(),
			"error", err,
		)
		return outcome, err
	}
	if err != nil {
		refundErr := s.refund(ctx, r.UserID, r.Amount, r.ExternalID)
		if outcome != nil && outcome.Payout != nil {
			msg := outcomeMessage(outcome.Payout)
			if refundErr == nil {
				msg += ". Your balance has been restored."
			}
			s.notify(ctx, outcome.Payout.UserID, msg)
		}
		if refundErr != nil {
			err = errors.Join(err, refundErr)
		}
		return outcome, err
	}

	if !outcome.Created {
		// Lost the race to a concurrent request with the same id: that request
		// carries the debit.
		if refundErr := s.refund(ctx, r.UserID, r.Amount, r.ExternalID); refundErr != nil {
			return outcome, refundErr
		}
		return outcome, nil
	}

	s.notify(ctx, outcome.Payout.UserID, outcomeMessage(outcome.Payout))
	return outcome, nil
}

func (s *withdrawService) refund(ctx context.Context, userID string, amount decimal.Decimal, externalID string) error {
	if err := s.balanceRepo.Credit(context.WithoutCancel(ctx), userID, amount); err != nil {
		s.logger.Error("balance refund failed",
			"event", "balance_refund_failed",
			"user_id", userID,
			"external_id", externalID,
			"amount", amount.String(),
			"error", err,
		)
		return fmt.Errorf("refund %s to %s: %w", amount.String(), userID, err)
	}
	s.logger.Info("balance refunded",
		"event", "balance_refunded",
		"user_id", userID,
		"external_id", externalID,
		"amount", amount.String(),
	)
	return nil
}

func (s *withdrawService) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.logger.Warn("notification failed",
			"event", "notify_failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *withdrawService) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	return s.balanceRepo.GetBalance(ctx, userID)
}

func (s *withdrawService) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Balance, error) {
	if !domain.ValidAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	if err := s.balanceRepo.Credit(ctx, userID, amount); err != nil {
		return nil, err
	}
	return s.balanceRepo.GetBalance(ctx, userID)
}
