package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"barberflow/internal/apperr"
)

// maxTxAttempts bounds how often a serialization conflict is retried before
// the failure is surfaced as an internal error.
const maxTxAttempts = 3

// SQLTransactor runs functions inside SERIALIZABLE Postgres transactions,
// retrying the whole body on serialization conflicts. Retry policy lives
// here, not in the services: callers see either success, a business error
// returned by the body, or apperr internal once retries are exhausted.
type SQLTransactor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLTransactor creates a Transactor over db.
func NewSQLTransactor(db *sql.DB, logger *zap.Logger) *SQLTransactor {
	return &SQLTransactor{db: db, logger: logger}
}

// WithinTx implements Transactor.
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(tx Querier) error) error {
	var lastErr error

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := t.runOnce(ctx, fn)
		if err == nil {
			return nil
		}

		if !IsSerializationFailure(err) {
			return err
		}

		lastErr = err
		t.logger.Warn("Transaction serialization conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return apperr.Internal(ctx.Err(), "transaction cancelled")
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}

	return apperr.Internal(lastErr, "transaction failed after retries")
}

func (t *SQLTransactor) runOnce(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return apperr.Internal(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.logger.Error("Transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if IsSerializationFailure(err) {
			return err
		}
		return apperr.Internal(fmt.Errorf("commit: %w", err), "failed to commit transaction")
	}

	return nil
}
