package services

import (
	"context"
	"strings"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/repositories"

	"go.uber.org/zap"
)

type ReportServiceInterface interface {
	GetEquipmentReport(ctx context.Context) (*dto.EquipmentReportDTO, error)
}

type reportService struct {
	tx     repositories.TxManagerInterface
	logger *zap.Logger
	now    func() time.Time
}

func NewReportService(tx repositories.TxManagerInterface, logger *zap.Logger) ReportServiceInterface {
	return &reportService{
		tx:     tx,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetEquipmentReport читает оборудование и задачи из одного снимка, чтобы
// строки двух листов не расходились.
func (s *reportService) GetEquipmentReport(ctx context.Context) (*dto.EquipmentReportDTO, error) {
	var (
		equipment []entities.Equipment
		tasks     []entities.MaintenanceTask
	)
	err := s.tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		if equipment, err = uow.Equipment().FindMany(ctx, repositories.EquipmentFilter{}); err != nil {
			return err
		}
		tasks, err = uow.Tasks().FindMany(ctx, repositories.TaskFilter{})
		return err
	})
	if err != nil {
		s.logger.Error("Ошибка при формировании отчета по оборудованию", zap.Error(err))
		return nil, err
	}
	return buildEquipmentReport(equipment, tasks, s.now()), nil
}

func buildEquipmentReport(equipment []entities.Equipment, tasks []entities.MaintenanceTask, now time.Time) *dto.EquipmentReportDTO {
	forest := hierarchy.BuildTree(equipment)
	depths := hierarchy.Depths(forest)

	names := make(map[string]string, len(equipment))
	for _, e := range equipment {
		names[e.ID] = e.Name
	}
	open := make(map[string]int)
	for _, t := range tasks {
		if !t.Completed {
			open[t.EquipmentID]++
		}
	}

	report := &dto.EquipmentReportDTO{
		Equipment: make([]dto.EquipmentReportRowDTO, 0, len(equipment)),
		Tasks:     make([]dto.TaskReportRowDTO, 0, len(tasks)),
	}

	byID := make(map[string]entities.Equipment, len(equipment))
	for _, e := range equipment {
		byID[e.ID] = e
	}
	emitted := make(map[string]struct{}, len(equipment))
	addRow := func(e entities.Equipment) {
		emitted[e.ID] = struct{}{}
		report.Equipment = append(report.Equipment, dto.EquipmentReportRowDTO{
			ID:          e.ID,
			Name:        e.Name,
			ParentID:    e.ParentID.String,
			PartIDs:     strings.Join(e.PartIDs, ", "),
			InventoryID: strings.Join(e.InventoryPartIDs, ", "),
			Depth:       depths[e.ID],
			OpenTasks:   open[e.ID],
		})
	}

	// строки идут в порядке обхода дерева: родитель, затем его части
	var walk func(nodes []*hierarchy.Node)
	walk = func(nodes []*hierarchy.Node) {
		for _, n := range nodes {
			addRow(byID[n.ID])
			walk(n.Children)
		}
	}
	walk(forest)

	// записи из испорченного цикла не достижимы от корней, но в отчет попасть должны
	for _, e := range equipment {
		if _, ok := emitted[e.ID]; !ok {
			addRow(e)
		}
	}

	for _, t := range tasks {
		report.Tasks = append(report.Tasks, dto.TaskReportRowDTO{
			ID:            t.ID,
			EquipmentID:   t.EquipmentID,
			EquipmentName: names[t.EquipmentID],
			Type:          string(t.Type),
			Schedule:      t.Schedule.UTC().Format("02.01.2006"),
			Completed:     t.Completed,
			Overdue:       t.IsOverdue(now),
			Description:   t.Description.String,
		})
	}
	return report
}
