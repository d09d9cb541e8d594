package services

import (
	"context"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"
	"github.com/revenant-13/maintenance-app/pkg/metrics"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"go.uber.org/zap"
)

type EquipmentServiceInterface interface {
	GetEquipments(ctx context.Context, filter repositories.EquipmentFilter) ([]entities.Equipment, error)
	FindEquipment(ctx context.Context, id string) (*entities.Equipment, error)
	CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*entities.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, payload dto.UpdateEquipmentDTO) (*entities.Equipment, error)
	DeleteEquipment(ctx context.Context, id string) (*dto.EquipmentDeletedDTO, error)
	GetDescendants(ctx context.Context, id string) ([]entities.Equipment, error)
	GetAncestors(ctx context.Context, id string) ([]entities.Equipment, error)
	GetTree(ctx context.Context) ([]*hierarchy.Node, error)
	CheckIntegrity(ctx context.Context) (hierarchy.IntegrityReport, error)
}

type EquipmentService struct {
	*BaseService
	engine *hierarchy.Engine
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewEquipmentService(
	base *BaseService,
	engine *hierarchy.Engine,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		BaseService: base,
		engine:      engine,
		bus:         bus,
		logger:      logger,
	}
}

func (s *EquipmentService) GetEquipments(ctx context.Context, filter repositories.EquipmentFilter) ([]entities.Equipment, error) {
	unfiltered := len(filter.IDs) == 0 && filter.ParentID == "" && !filter.RootsOnly && filter.InventoryID == ""
	var gen uint64
	if unfiltered {
		var cached []entities.Equipment
		if s.CacheGet(ctx, CacheKeyEquipmentList, &cached) {
			return cached, nil
		}
		gen = s.CacheGeneration(CacheKeyEquipmentList)
	}

	list, err := s.engine.ListEquipment(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка получения списка оборудования", zap.Error(err))
		return nil, err
	}
	if unfiltered {
		s.CacheSetIfCurrent(ctx, CacheKeyEquipmentList, gen, list)
	}
	return list, nil
}

func (s *EquipmentService) FindEquipment(ctx context.Context, id string) (*entities.Equipment, error) {
	return s.engine.GetEquipment(ctx, id)
}

func (s *EquipmentService) CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (created *entities.Equipment, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("create", start, err) }(time.Now())

	created, err = s.engine.CreateEquipment(ctx, hierarchy.CreateInput{
		ID:           payload.ID,
		Name:         payload.Name,
		ParentID:     payload.ParentID,
		ChildIDs:     payload.PartIDs,
		InventoryIDs: payload.InventoryPartIDs,
	})
	if err != nil {
		s.logFailure("Ошибка при создании оборудования", err, zap.String("name", payload.Name))
		return nil, err
	}

	s.CacheInvalidate(ctx, CacheKeyEquipmentList)
	s.logger.Info("Оборудование успешно создано", zap.String("id", created.ID), zap.Strings("partIds", created.PartIDs))
	s.bus.Publish(ctx, events.EquipmentChangedEvent{Kind: events.EquipmentCreated, Equipment: created.Clone()})
	return created, nil
}

func (s *EquipmentService) UpdateEquipment(ctx context.Context, id string, payload dto.UpdateEquipmentDTO) (updated *entities.Equipment, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("update", start, err) }(time.Now())

	updated, err = s.engine.UpdateEquipment(ctx, id, toUpdateInput(payload))
	if err != nil {
		s.logFailure("Ошибка при обновлении оборудования", err, zap.String("id", id))
		return nil, err
	}

	s.CacheInvalidate(ctx, CacheKeyEquipmentList)
	s.logger.Info("Оборудование обновлено", zap.String("id", id))
	s.bus.Publish(ctx, events.EquipmentChangedEvent{Kind: events.EquipmentUpdated, Equipment: updated.Clone()})
	return updated, nil
}

// DeleteEquipment возвращает результат каскада и тогда, когда встречены
// висячие ссылки: удаление при этом уже зафиксировано.
func (s *EquipmentService) DeleteEquipment(ctx context.Context, id string) (deleted *dto.EquipmentDeletedDTO, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("delete", start, err) }(time.Now())

	result, err := s.engine.DeleteEquipment(ctx, id)
	if result == nil {
		s.logFailure("Ошибка при удалении оборудования", err, zap.String("id", id))
		return nil, err
	}

	metrics.CascadeRemovedTasks(result.RemovedTasks)
	s.CacheInvalidate(ctx, CacheKeyEquipmentList)
	s.logger.Info("Оборудование удалено",
		zap.String("id", id),
		zap.Strings("detachedChildren", result.DetachedChildren),
		zap.Int("removedTasks", result.RemovedTasks),
	)
	if err != nil {
		s.logger.Warn("При удалении пропущены висячие ссылки", zap.String("id", id), zap.Strings("dangling", result.DanglingIDs))
	}
	s.bus.Publish(ctx, events.EquipmentDeletedEvent{
		ID:               result.ID,
		DetachedChildren: result.DetachedChildren,
		UnlinkedParent:   result.UnlinkedParent,
		RemovedTasks:     result.RemovedTasks,
		DanglingIDs:      result.DanglingIDs,
	})

	return &dto.EquipmentDeletedDTO{
		ID:               result.ID,
		DetachedChildren: result.DetachedChildren,
		UnlinkedParent:   result.UnlinkedParent,
		RemovedTasks:     result.RemovedTasks,
		DanglingIDs:      result.DanglingIDs,
	}, err
}

func (s *EquipmentService) GetDescendants(ctx context.Context, id string) ([]entities.Equipment, error) {
	return s.engine.Descendants(ctx, id)
}

func (s *EquipmentService) GetAncestors(ctx context.Context, id string) ([]entities.Equipment, error) {
	return s.engine.Ancestors(ctx, id)
}

func (s *EquipmentService) GetTree(ctx context.Context) ([]*hierarchy.Node, error) {
	return s.engine.Tree(ctx)
}

func (s *EquipmentService) CheckIntegrity(ctx context.Context) (hierarchy.IntegrityReport, error) {
	report, err := s.engine.Verify(ctx)
	if err != nil {
		return report, err
	}
	if !report.OK() {
		s.logger.Warn("Нарушена целостность иерархии", zap.Int("violations", len(report.Violations)))
	}
	return report, nil
}

// logFailure: доменные ошибки - это ответ клиенту, в Error пишем только сбои хранилища.
func (s *EquipmentService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if apperrors.HTTPStatus(err) >= 500 {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

func toUpdateInput(payload dto.UpdateEquipmentDTO) hierarchy.UpdateInput {
	in := hierarchy.UpdateInput{Name: payload.Name}
	if payload.HasParentID() {
		in.ParentID = utils.ToPtr(payload.ParentID)
	}
	if payload.HasPartIDs() {
		in.PartIDs = payload.PartIDs
		if in.PartIDs == nil {
			in.PartIDs = []string{}
		}
	}
	if payload.HasInventoryPartIDs() {
		in.InventoryPartIDs = payload.InventoryPartIDs
		if in.InventoryPartIDs == nil {
			in.InventoryPartIDs = []string{}
		}
	}
	return in
}

var _ EquipmentServiceInterface = (*EquipmentService)(nil)
