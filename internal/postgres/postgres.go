package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gride/internal/config"
	"gride/internal/mylogger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a connection pool, retrying with a linear backoff
// (1s, 2s, 3s, ...) up to cfg.MaxRetries attempts.
func Connect(ctx context.Context, cfg *config.DBconfig, mylog mylogger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				mylog.Info("Successfully connected to the database")
				return pool, nil
			}
			pool.Close()
		}

		lastErr = err
		mylog.Error(fmt.Sprintf("DB connection attempt %d failed", i+1), err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", attempts, lastErr)
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// IsRetryable reports whether err aborted a transaction that may succeed
// when run again from the start.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// ConstraintName returns the violated constraint of a postgres error, or "".
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
