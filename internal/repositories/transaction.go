package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresBackend = "postgres"

var _ TxManagerInterface = (*TxManager)(nil)

// TxManager runs units of work against PostgreSQL. Write transactions are
// SERIALIZABLE, so two concurrent hierarchy edits that read overlapping rows
// cannot both commit.
type TxManager struct {
	pool   *pgxpool.Pool
	policy RetryPolicy
}

func NewTxManager(pool *pgxpool.Pool, policy RetryPolicy) *TxManager {
	return &TxManager{pool: pool, policy: policy}
}

// IsSerializationFailure reports whether err is a PostgreSQL serialization
// failure or deadlock; both are safe to retry from the start.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func (m *TxManager) RunInTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return RunWithRetry(ctx, postgresBackend, m.policy, IsSerializationFailure, func(ctx context.Context) error {
		return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
	})
}

func (m *TxManager) RunReadOnly(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

// run выполняет fn в одной транзакции: откат при ошибке или панике, иначе коммит.
func (m *TxManager) run(ctx context.Context, opts pgx.TxOptions, fn func(uow UnitOfWork) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
			if err != nil {
				err = fmt.Errorf("ошибка при коммите транзакции: %w", err)
			}
		}
	}()

	err = fn(newPgUnitOfWork(tx))
	return err
}
