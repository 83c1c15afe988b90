package service

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

type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) CreateIfAbsent(ctx context.Context, p *domain.Payout) (*domain.Payout, bool, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Payout), args.Bool(1), args.Error(2)
}

func (m *MockPayoutRepository) UpdateResult(ctx context.Context, externalID string, res domain.BankResult) error {
	args := m.Called(ctx, externalID, res)
	return args.Error(0)
}

func (m *MockPayoutRepository) MergeResult(ctx context.Context, externalID string, res domain.BankResult) (bool, error) {
	args := m.Called(ctx, externalID, res)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payout, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *MockPayoutRepository) RecordCallback(ctx context.Context, cb *domain.Callback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func (m *MockPayoutRepository) ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Callback), args.Error(1)
}

type MockBankClient struct {
	mock.Mock
}

func (m *MockBankClient) Send(ctx context.Context, endpoint string, payload any) (map[string]any, error) {
	args := m.Called(ctx, endpoint, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID, message string) error {
	args := m.Called(ctx, userID, message)
	return args.Error(0)
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockBalanceRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
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
