package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

var (
	uniqueConstraint pq.ErrorCode = "23505"
)

type PoolConfig struct {
	MaxOpenConnection  int
	MaxIdleConnection  int
	ConnectionLifetime time.Duration
}

// Open connects through lib/pq ("postgres") or the pgx stdlib adapter ("pgx")
// and pings the database before returning.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	switch driver {
	case "":
		driver = DriverPostgres
	case DriverPostgres, DriverPgx:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if pool.MaxOpenConnection > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConnection)
	}
	if pool.MaxIdleConnection > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConnection)
	}
	if pool.ConnectionLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnectionLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueConstraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == string(uniqueConstraint)
	}
	return false
}
