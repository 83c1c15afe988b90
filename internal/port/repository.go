package port

import (
	"context"

	"cardpayout/internal/domain"

	"github.com/shopspring/decimal"
)

type PayoutRepository interface {
	// CreateIfAbsent inserts p as pending. When a payout with the same
	// external id exists it is returned unchanged with isNew=false.
	CreateIfAbsent(ctx context.Context, p *domain.Payout) (payout *domain.Payout, isNew bool, err error)
	UpdateResult(ctx context.Context, externalID string, res domain.BankResult) error
	// MergeResult applies res only if its status differs from the stored one.
	MergeResult(ctx context.Context, externalID string, res domain.BankResult) (changed bool, err error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payout, error)
	RecordCallback(ctx context.Context, cb *domain.Callback) error
	ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error)
}

type BalanceRepository interface {
	GetBalance(ctx context.Context, userID string) (*domain.Balance, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
}
