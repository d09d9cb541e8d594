package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgUnitOfWork struct {
	q querier
}

func newPgUnitOfWork(q querier) *pgUnitOfWork {
	return &pgUnitOfWork{q: q}
}

func (u *pgUnitOfWork) Equipment() EquipmentStore {
	return &EquipmentRepository{q: u.q}
}

func (u *pgUnitOfWork) Inventory() InventoryStore {
	return &InventoryRepository{q: u.q}
}

func (u *pgUnitOfWork) Tasks() MaintenanceTaskStore {
	return &MaintenanceTaskRepository{q: u.q}
}
