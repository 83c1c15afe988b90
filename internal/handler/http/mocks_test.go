package http

import (
	"context"
	"io"
	"log/slog"

	"cardpayout/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockWithdrawService struct {
	mock.Mock
}

func (m *MockWithdrawService) Withdraw(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutOutcome), args.Error(1)
}

func (m *MockWithdrawService) Balance(ctx context.Context, userID string) (*domain.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

func (m *MockWithdrawService) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Balance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) RequestPayout(ctx context.Context, req *domain.PayoutReq) (*domain.PayoutOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutOutcome), args.Error(1)
}

func (m *MockPayoutService) GetPayout(ctx context.Context, externalID string) (*domain.Payout, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *MockPayoutService) ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Callback), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Receive(ctx context.Context, body []byte, signature string) (*domain.ReceiveResult, error) {
	args := m.Called(ctx, body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReceiveResult), args.Error(1)
}
