package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"

	"github.com/shopspring/decimal"
)

type balanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) port.BalanceRepository {
	return &balanceRepository{db: db}
}

// GetBalance reports zero for users that never had a balance row.
func (r *balanceRepository) GetBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	const query = `SELECT user_id, amount, updated_at FROM balances WHERE user_id = $1`

	var b domain.Balance
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&b.UserID, &b.Amount, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Balance{UserID: userID, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select balance: %w", err)
	}
	return &b, nil
}

// Debit subtracts in a single conditional statement so concurrent debits
// cannot take the balance below zero.
func (r *balanceRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	const query = `UPDATE balances SET amount = amount - $2, updated_at = $3
	WHERE user_id = $1 AND amount >= $2`

	result, err := r.db.ExecContext(ctx, query, userID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (r *balanceRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	const query = `INSERT INTO balances (user_id, amount, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET amount = balances.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, userID, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}
