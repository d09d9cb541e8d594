// Package hierarchy keeps the equipment part tree consistent: parentId and
// partIds always agree, the relation stays a forest, and deletes cascade to
// children and maintenance tasks. Every operation runs as one store transaction.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/google/uuid"
)

const EquipmentIDPrefix = "equip-"

type Engine struct {
	tx    repositories.TxManagerInterface
	newID func() string
}

type Option func(*Engine)

// WithIDGenerator replaces the default equip-<uuid> generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(tx repositories.TxManagerInterface, opts ...Option) *Engine {
	e := &Engine{
		tx:    tx,
		newID: func() string { return EquipmentIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) CreateEquipment(ctx context.Context, in CreateInput) (*entities.Equipment, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.ID == "" {
		in.ID = e.newID()
	}

	var created *entities.Equipment
	err := e.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		created, err = newEnforcer(uow).create(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Engine) UpdateEquipment(ctx context.Context, id string, in UpdateInput) (*entities.Equipment, error) {
	if err := in.normalize(id); err != nil {
		return nil, err
	}

	var updated *entities.Equipment
	err := e.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		updated, err = newEnforcer(uow).update(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEquipment commits the cascade even when it meets dangling references;
// in that case the result is returned together with a NotFoundError naming them.
func (e *Engine) DeleteEquipment(ctx context.Context, id string) (*CascadeResult, error) {
	var result *CascadeResult
	err := e.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		result, err = newResolver(uow).delete(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(result.DanglingIDs) > 0 {
		return result, &apperrors.NotFoundError{
			Entity: "equipment",
			IDs:    result.DanglingIDs,
			Detail: fmt.Sprintf("dangling references skipped while deleting %q", id),
		}
	}
	return result, nil
}

func (e *Engine) GetEquipment(ctx context.Context, id string) (*entities.Equipment, error) {
	var found *entities.Equipment
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		found, err = uow.Equipment().Find(ctx, id)
		return err
	})
	return found, err
}

func (e *Engine) ListEquipment(ctx context.Context, filter repositories.EquipmentFilter) ([]entities.Equipment, error) {
	var list []entities.Equipment
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		list, err = uow.Equipment().FindMany(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortEquipment(list)
	return list, nil
}

// Descendants returns every record below id in breadth-first order.
func (e *Engine) Descendants(ctx context.Context, id string) ([]entities.Equipment, error) {
	var out []entities.Equipment
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Equipment().Find(ctx, id); err != nil {
			return err
		}
		ids, err := newDetector(uow.Equipment()).descendantsOf(ctx, id)
		if err != nil {
			return err
		}
		out, err = loadOrdered(ctx, uow.Equipment(), ids)
		return err
	})
	return out, err
}

// Ancestors returns the parent chain of id, nearest first.
func (e *Engine) Ancestors(ctx context.Context, id string) ([]entities.Equipment, error) {
	var out []entities.Equipment
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Equipment().Find(ctx, id); err != nil {
			return err
		}
		ids, err := newDetector(uow.Equipment()).ancestorsOf(ctx, id)
		if err != nil {
			return err
		}
		out, err = loadOrdered(ctx, uow.Equipment(), ids)
		return err
	})
	return out, err
}

func (e *Engine) Tree(ctx context.Context) ([]*Node, error) {
	var forest []*Node
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		list, err := uow.Equipment().FindMany(ctx, repositories.EquipmentFilter{})
		if err != nil {
			return err
		}
		forest = BuildTree(list)
		return nil
	})
	return forest, err
}

func (e *Engine) Verify(ctx context.Context) (IntegrityReport, error) {
	var report IntegrityReport
	err := e.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		list, err := uow.Equipment().FindMany(ctx, repositories.EquipmentFilter{})
		if err != nil {
			return err
		}
		inventory, err := uow.Inventory().FindMany(ctx, nil)
		if err != nil {
			return err
		}
		report = CheckIntegrity(list, inventory)
		return nil
	})
	return report, err
}

func loadOrdered(ctx context.Context, store repositories.EquipmentStore, ids []string) ([]entities.Equipment, error) {
	out := make([]entities.Equipment, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := store.FindMany(ctx, repositories.EquipmentFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]entities.Equipment, len(list))
	for _, e := range list {
		byID[e.ID] = e
	}
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
