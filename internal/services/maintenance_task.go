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

const TaskIDPrefix = "task-"

type TaskListFilter struct {
	EquipmentID string
	Completed   *bool
	Overdue     *bool
}

type MaintenanceTaskServiceInterface interface {
	GetTasks(ctx context.Context, filter TaskListFilter) ([]dto.MaintenanceTaskDTO, error)
	FindTask(ctx context.Context, id string) (*dto.MaintenanceTaskDTO, error)
	CreateTask(ctx context.Context, payload dto.CreateMaintenanceTaskDTO) (*dto.MaintenanceTaskDTO, error)
	UpdateTask(ctx context.Context, id string, payload dto.UpdateMaintenanceTaskDTO) (*dto.MaintenanceTaskDTO, error)
	DeleteTask(ctx context.Context, id string) error
}

type MaintenanceTaskService struct {
	tx     repositories.TxManagerInterface
	bus    *eventbus.Bus
	logger *zap.Logger
	now    func() time.Time
}

func NewMaintenanceTaskService(tx repositories.TxManagerInterface, bus *eventbus.Bus, logger *zap.Logger) *MaintenanceTaskService {
	return &MaintenanceTaskService{
		tx:     tx,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock подменяет текущее время для вычисления просрочки.
func (s *MaintenanceTaskService) WithClock(now func() time.Time) *MaintenanceTaskService {
	s.now = now
	return s
}

func (s *MaintenanceTaskService) GetTasks(ctx context.Context, filter TaskListFilter) ([]dto.MaintenanceTaskDTO, error) {
	var tasks []entities.MaintenanceTask
	err := s.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		tasks, err = uow.Tasks().FindMany(ctx, repositories.TaskFilter{
			EquipmentID: strings.TrimSpace(filter.EquipmentID),
			Completed:   filter.Completed,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Ошибка получения списка задач", zap.Error(err))
		return nil, err
	}

	now := s.now()
	out := make([]dto.MaintenanceTaskDTO, 0, len(tasks))
	for _, t := range tasks {
		if filter.Overdue != nil && t.IsOverdue(now) != *filter.Overdue {
			continue
		}
		out = append(out, taskToDTO(t, now))
	}
	return out, nil
}

func (s *MaintenanceTaskService) FindTask(ctx context.Context, id string) (*dto.MaintenanceTaskDTO, error) {
	var task *entities.MaintenanceTask
	err := s.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		task, err = uow.Tasks().Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	res := taskToDTO(*task, s.now())
	return &res, nil
}

func (s *MaintenanceTaskService) CreateTask(ctx context.Context, payload dto.CreateMaintenanceTaskDTO) (res *dto.MaintenanceTaskDTO, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("task_create", start, err) }(time.Now())

	task := entities.MaintenanceTask{
		ID:          TaskIDPrefix + uuid.NewString(),
		EquipmentID: strings.TrimSpace(payload.EquipmentID),
		Type:        entities.MaintenanceType(payload.Type),
		Description: payload.Description,
		Completed:   payload.Completed,
	}
	if task.EquipmentID == "" {
		return nil, apperrors.NewValidationError("equipmentId", "is required")
	}
	if !task.Type.Valid() {
		return nil, apperrors.NewValidationError("type", "must be %q or %q", entities.MaintenanceCalibration, entities.MaintenancePM)
	}
	schedule, ok := utils.ParseSchedule(payload.Schedule)
	if !ok {
		return nil, apperrors.NewValidationError("schedule", "%q is not a date", payload.Schedule)
	}
	task.Schedule = schedule

	var created *entities.MaintenanceTask
	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Equipment().Find(ctx, task.EquipmentID); err != nil {
			return err
		}
		var err error
		created, err = uow.Tasks().Insert(ctx, task)
		return err
	})
	if err != nil {
		s.logger.Info("Задача не создана", zap.String("equipmentId", task.EquipmentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Задача обслуживания создана", zap.String("id", created.ID), zap.String("equipmentId", created.EquipmentID))
	s.bus.Publish(ctx, events.TaskChangedEvent{Action: "created", ID: created.ID, EquipmentID: created.EquipmentID})
	out := taskToDTO(*created, s.now())
	return &out, nil
}

func (s *MaintenanceTaskService) UpdateTask(ctx context.Context, id string, payload dto.UpdateMaintenanceTaskDTO) (res *dto.MaintenanceTaskDTO, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("task_update", start, err) }(time.Now())

	var schedule *time.Time
	if payload.Schedule != nil {
		parsed, ok := utils.ParseSchedule(*payload.Schedule)
		if !ok {
			return nil, apperrors.NewValidationError("schedule", "%q is not a date", *payload.Schedule)
		}
		schedule = utils.ToPtr(parsed)
	}
	if payload.Type != nil && !entities.MaintenanceType(*payload.Type).Valid() {
		return nil, apperrors.NewValidationError("type", "must be %q or %q", entities.MaintenanceCalibration, entities.MaintenancePM)
	}

	var updated *entities.MaintenanceTask
	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		current, err := uow.Tasks().Find(ctx, id)
		if err != nil {
			return err
		}
		task := *current

		if payload.EquipmentID != nil {
			target := strings.TrimSpace(*payload.EquipmentID)
			if target != task.EquipmentID {
				if _, err := uow.Equipment().Find(ctx, target); err != nil {
					return err
				}
				task.EquipmentID = target
			}
		}
		if payload.Type != nil {
			task.Type = entities.MaintenanceType(*payload.Type)
		}
		if schedule != nil {
			task.Schedule = *schedule
		}
		if payload.HasDescription() {
			task.Description = payload.Description
		}
		if payload.Completed != nil {
			task.Completed = *payload.Completed
		}

		updated, err = uow.Tasks().Update(ctx, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Задача обслуживания обновлена", zap.String("id", id), zap.Bool("completed", updated.Completed))
	s.bus.Publish(ctx, events.TaskChangedEvent{Action: "updated", ID: id, EquipmentID: updated.EquipmentID})
	out := taskToDTO(*updated, s.now())
	return &out, nil
}

func (s *MaintenanceTaskService) DeleteTask(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("task_delete", start, err) }(time.Now())

	var equipmentID string
	err = s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		task, err := uow.Tasks().Find(ctx, id)
		if err != nil {
			return err
		}
		equipmentID = task.EquipmentID
		_, err = uow.Tasks().Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Задача обслуживания удалена", zap.String("id", id))
	s.bus.Publish(ctx, events.TaskChangedEvent{Action: "deleted", ID: id, EquipmentID: equipmentID})
	return nil
}

func taskToDTO(t entities.MaintenanceTask, now time.Time) dto.MaintenanceTaskDTO {
	return dto.MaintenanceTaskDTO{
		ID:          t.ID,
		EquipmentID: t.EquipmentID,
		Type:        string(t.Type),
		Schedule:    t.Schedule.UTC().Format(time.RFC3339),
		Description: t.Description,
		Completed:   t.Completed,
		Overdue:     t.IsOverdue(now),
		CreatedAt:   utils.FormatTime(t.CreatedAt),
		UpdatedAt:   utils.FormatTime(t.UpdatedAt),
	}
}

var _ MaintenanceTaskServiceInterface = (*MaintenanceTaskService)(nil)
