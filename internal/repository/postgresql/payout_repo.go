package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cardpayout/internal/domain"
	"cardpayout/internal/port"
)

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) port.PayoutRepository {
	return &payoutRepository{db: db}
}

const payoutColumns = `id, external_id, user_id, masked_destination, amount, currency, status, bank_tx_id, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayout(row rowScanner) (*domain.Payout, error) {
	var p domain.Payout
	var status string
	err := row.Scan(
		&p.ID, &p.ExternalID, &p.UserID, &p.MaskedDestination, &p.Amount, &p.Currency,
		&status, &p.BankTxID, &p.Error, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PayoutStatus(status)
	return &p, nil
}

// CreateIfAbsent relies on the UNIQUE constraint on external_id, so two
// concurrent inserts for the same key resolve to exactly one row.
func (r *payoutRepository) CreateIfAbsent(ctx context.Context, p *domain.Payout) (*domain.Payout, bool, error) {
	const query = `INSERT INTO payouts (` + payoutColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ExternalID, p.UserID, p.MaskedDestination, p.Amount, p.Currency,
		string(p.Status), p.BankTxID, p.Error, p.CreatedAt, p.UpdatedAt,
	)
	if err == nil {
		return p, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("insert payout: %w", err)
	}

	existing, err := r.GetByExternalID(ctx, p.ExternalID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing payout: %w", err)
	}
	return existing, false, nil
}

func (r *payoutRepository) UpdateResult(ctx context.Context, externalID string, res domain.BankResult) error {
	const query = `UPDATE payouts
	SET status = $2,
	    bank_tx_id = COALESCE(NULLIF($3::text, ''), bank_tx_id),
	    error = NULLIF($4::text, ''),
	    updated_at = $5
	WHERE external_id = $1`

	result, err := r.db.ExecContext(ctx, query, externalID, string(res.Status), res.TxID, res.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update payout: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPayoutNotFound
	}
	return nil
}

// MergeResult is UpdateResult guarded by a status comparison, so a replayed
// callback leaves the row untouched.
func (r *payoutRepository) MergeResult(ctx context.Context, externalID string, res domain.BankResult) (bool, error) {
	const query = `UPDATE payouts
	SET status = $2,
	    bank_tx_id = COALESCE(NULLIF($3::text, ''), bank_tx_id),
	    error = NULLIF($4::text, ''),
	    updated_at = $5
	WHERE external_id = $1 AND status IS DISTINCT FROM $2`

	result, err := r.db.ExecContext(ctx, query, externalID, string(res.Status), res.TxID, res.Error, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("merge payout result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *payoutRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payout, error) {
	const query = `SELECT ` + payoutColumns + ` FROM payouts WHERE external_id = $1`

	p, err := scanPayout(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select payout: %w", err)
	}
	return p, nil
}

func (r *payoutRepository) RecordCallback(ctx context.Context, cb *domain.Callback) error {
	const query = `INSERT INTO callbacks (id, target_external_id, payload, verified, received_at)
	VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, cb.ID, cb.TargetExternalID, cb.Payload, cb.Verified, cb.ReceivedAt); err != nil {
		return fmt.Errorf("insert callback: %w", err)
	}
	return nil
}

func (r *payoutRepository) ListCallbacks(ctx context.Context, externalID string) ([]*domain.Callback, error) {
	const query = `SELECT id, target_external_id, payload, verified, received_at
	FROM callbacks WHERE target_external_id = $1 ORDER BY received_at, id`

	rows, err := r.db.QueryContext(ctx, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("select callbacks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Callback
	for rows.Next() {
		var cb domain.Callback
		if err := rows.Scan(&cb.ID, &cb.TargetExternalID, &cb.Payload, &cb.Verified, &cb.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, &cb)
	}
	return out, rows.Err()
}
