package services

import (
	"context"
	"strings"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"
	"github.com/revenant-13/maintenance-app/pkg/metrics"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const InventoryIDPrefix = "inv-"

type InventoryServiceInterface interface {
	GetInventory(ctx context.Context) ([]entities.Inventory, error)
	FindInventory(ctx context.Context, id string) (*entities.Inventory, error)
	CreateInventory(ctx context.Context, payload dto.CreateInventoryDTO) (*entities.Inventory, error)
	UpdateInventory(ctx context.Context, id string, payload dto.UpdateInventoryDTO) (*entities.Inventory, error)
	DeleteInventory(ctx context.Context, id string) error
}

type InventoryService struct {
	tx     repositories.TxManagerInterface
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewInventoryService(tx repositories.TxManagerInterface, bus *eventbus.Bus, logger *zap.Logger) *InventoryService {
	return &InventoryService{tx: tx, bus: bus, logger: logger}
}

func (s *InventoryService) GetInventory(ctx context.Context) ([]entities.Inventory, error) {
	var list []entities.Inventory
	err := s.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		list, err = uow.Inventory().FindMany(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *InventoryService) FindInventory(ctx context.Context, id string) (*entities.Inventory, error) {
	var item *entities.Inventory
	err := s.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		item, err = uow.Inventory().Find(ctx, id)
		return err
	})
	return item, err
}

func (s *InventoryService) CreateInventory(ctx context.Context, payload dto.CreateInventoryDTO) (created *entities.Inventory, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("inventory_create", start, err) }(time.Now())

	item := entities.Inventory{
		ID:       strings.TrimSpace(payload.ID),
		Name:     strings.TrimSpace(payload.Name),
		Stock:    payload.Stock,
		Category: payload.Category,
	}
	if item.Name == "" {
		return nil, apperrors.NewValidationError("name", "must not be blank")
	}
	if item.Stock < 0 {
		return nil, apperrors.NewValidationError("stock", "must not be negative")
	}
	if item.ID == "" {
		item.ID = InventoryIDPrefix + uuid.NewString()
	}

	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		created, err = uow.Inventory().Insert(ctx, item)
		return err
	})
	if err != nil {
		s.logger.Error("Ошибка при создании позиции склада", zap.String("id", item.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Позиция склада создана", zap.String("id", created.ID))
	s.bus.Publish(ctx, events.InventoryChangedEvent{Action: "created", ID: created.ID})
	return created, nil
}

func (s *InventoryService) UpdateInventory(ctx context.Context, id string, payload dto.UpdateInventoryDTO) (updated *entities.Inventory, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("inventory_update", start, err) }(time.Now())

	patch := repositories.InventoryPatch{Stock: payload.Stock}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name", "must not be blank")
		}
		patch.Name = utils.ToPtr(name)
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, apperrors.NewValidationError("stock", "must not be negative")
	}
	if payload.HasCategory() {
		patch.Category = utils.ToPtr(payload.Category)
	}

	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		updated, err = uow.Inventory().UpdateFields(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Позиция склада обновлена", zap.String("id", id))
	s.bus.Publish(ctx, events.InventoryChangedEvent{Action: "updated", ID: id})
	return updated, nil
}

// DeleteInventory отказывает, пока позиция указана в inventoryPartIds хоть
// одного оборудования.
func (s *InventoryService) DeleteInventory(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("inventory_delete", start, err) }(time.Now())

	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Inventory().Find(ctx, id); err != nil {
			return err
		}
		users, err := uow.Equipment().FindMany(ctx, repositories.EquipmentFilter{InventoryID: id})
		if err != nil {
			return err
		}
		if len(users) > 0 {
			ids := make([]string, 0, len(users))
			for _, e := range users {
				ids = append(ids, e.ID)
			}
			return apperrors.NewConflictError("inventory %q is used by equipment %s", id, strings.Join(ids, ", "))
		}
		_, err = uow.Inventory().Delete(ctx, id)
		return err
	})
	if err != nil {
		s.logger.Info("Позиция склада не удалена", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("Позиция склада удалена", zap.String("id", id))
	s.bus.Publish(ctx, events.InventoryChangedEvent{Action: "deleted", ID: id})
	return nil
}

var _ InventoryServiceInterface = (*InventoryService)(nil)
