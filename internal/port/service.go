package port

import (
	"context"

	"cardpayout/internal/domain"

	"github.com/shopspring/decimal"
)

type PayoutService interface {
	RequestPayout(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error)
	GetPayout(ctx context.Context, externalID string) (*domain.Payout, error)
	ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error)
}

type WithdrawService interface {
	Withdraw(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error)
	Balance(ctx context.Context, userID string) (*domain.Balance, error)
	TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Balance, error)
}

type WebhookService interface {
	Receive(ctx context.Context, body []byte, signature string) (*domain.ReceiveResult, error)
}

// BankClient sends signed requests to the payer. Responses are returned as
// decoded JSON objects without business interpretation.
type BankClient interface {
	Send(ctx context.Context, endpoint string, payload any) (map[string]any, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}
