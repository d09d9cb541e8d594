package services

import (
	"context"
	"sort"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DashboardServiceInterface interface {
	GetDashboardStats(ctx context.Context) (*dto.DashboardStatsDTO, error)
}

type DashboardService struct {
	*BaseService
	tx     repositories.TxManagerInterface
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardService(base *BaseService, tx repositories.TxManagerInterface, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		BaseService: base,
		tx:          tx,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// GetDashboardStats читает три коллекции параллельно, каждую в своей
// read-only транзакции, и собирает сводку.
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*dto.DashboardStatsDTO, error) {
	var cached dto.DashboardStatsDTO
	if s.CacheGet(ctx, CacheKeyDashboard, &cached) {
		return &cached, nil
	}

	var (
		equipment []entities.Equipment
		inventory []entities.Inventory
		tasks     []entities.MaintenanceTask
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.tx.RunReadOnly(gctx, func(uow repositories.UnitOfWork) error {
			var err error
			equipment, err = uow.Equipment().FindMany(gctx, repositories.EquipmentFilter{})
			return err
		})
	})
	g.Go(func() error {
		return s.tx.RunReadOnly(gctx, func(uow repositories.UnitOfWork) error {
			var err error
			inventory, err = uow.Inventory().FindMany(gctx, nil)
			return err
		})
	})
	g.Go(func() error {
		return s.tx.RunReadOnly(gctx, func(uow repositories.UnitOfWork) error {
			var err error
			tasks, err = uow.Tasks().FindMany(gctx, repositories.TaskFilter{})
			return err
		})
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Ошибка при сборе статистики дашборда", zap.Error(err))
		return nil, err
	}

	stats := buildDashboard(equipment, inventory, tasks, s.now())
	s.CacheSet(ctx, CacheKeyDashboard, stats)
	return stats, nil
}

func buildDashboard(equipment []entities.Equipment, inventory []entities.Inventory, tasks []entities.MaintenanceTask, now time.Time) *dto.DashboardStatsDTO {
	stats := &dto.DashboardStatsDTO{
		TasksByType:   map[string]int{},
		EquipmentTask: []dto.EquipmentTaskStatDTO{},
	}
	stats.Totals.Equipment = len(equipment)
	stats.Totals.Inventory = len(inventory)

	perEquipment := make(map[string]*dto.EquipmentTaskStatDTO, len(equipment))
	for _, e := range equipment {
		if e.IsRoot() {
			stats.Totals.Roots++
		}
		perEquipment[e.ID] = &dto.EquipmentTaskStatDTO{EquipmentID: e.ID, Name: e.Name}
	}
	for _, item := range inventory {
		if item.OutOfStock() {
			stats.Totals.LowStock++
		}
	}

	for _, t := range tasks {
		stats.TasksByType[string(t.Type)]++
		overdue := t.IsOverdue(now)
		if t.Completed {
			stats.Totals.TasksCompleted++
		} else {
			stats.Totals.TasksIncomplete++
		}
		if overdue {
			stats.Totals.TasksOverdue++
		}

		stat, ok := perEquipment[t.EquipmentID]
		if !ok {
			continue
		}
		stat.Total++
		if t.Completed {
			stat.Completed++
		}
		if overdue {
			stat.Overdue++
		}
	}

	for _, stat := range perEquipment {
		if stat.Total > 0 {
			stats.EquipmentTask = append(stats.EquipmentTask, *stat)
		}
	}
	sort.Slice(stats.EquipmentTask, func(i, j int) bool {
		a, b := stats.EquipmentTask[i], stats.EquipmentTask[j]
		if a.Overdue != b.Overdue {
			return a.Overdue > b.Overdue
		}
		return a.EquipmentID < b.EquipmentID
	})

	stats.Integrity = hierarchy.CheckIntegrity(equipment, inventory).OK()
	return stats
}
