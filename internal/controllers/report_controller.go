package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/services"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

// GetEquipmentReport - по умолчанию отдает .xlsx, ?format=json - тело в JSON.
func (c *ReportController) GetEquipmentReport(ctx echo.Context) error {
	data, err := c.reportService.GetEquipmentReport(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "json" {
		return utils.SuccessResponse(ctx, data, "Отчет успешно сформирован", http.StatusOK)
	}
	return c.respondWithXLSX(ctx, data)
}

var equipmentHeaders = []string{
	"№", "ID", "Наименование", "Родитель", "Части", "Запчасти со склада", "Уровень", "Открытые задачи",
}

var taskHeaders = []string{
	"№", "ID задачи", "ID оборудования", "Оборудование", "Тип", "Дата", "Выполнена", "Просрочена", "Описание",
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}

func equipmentRow(i int, row dto.EquipmentReportRowDTO) []interface{} {
	name := strings.Repeat("  ", row.Depth) + row.Name
	return []interface{}{
		i, row.ID, name, row.ParentID, row.PartIDs, row.InventoryID, row.Depth, row.OpenTasks,
	}
}

func taskRow(i int, row dto.TaskReportRowDTO) []interface{} {
	return []interface{}{
		i, row.ID, row.EquipmentID, row.EquipmentName, row.Type, row.Schedule,
		yesNo(row.Completed), yesNo(row.Overdue), row.Description,
	}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, data *dto.EquipmentReportDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	overdueStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	equipmentSheet := "Оборудование"
	f.SetSheetName("Sheet1", equipmentSheet)
	f.SetSheetRow(equipmentSheet, "A1", &equipmentHeaders)
	f.SetCellStyle(equipmentSheet, "A1", "H1", bold)
	for i, item := range data.Equipment {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := equipmentRow(i+1, item)
		f.SetSheetRow(equipmentSheet, cell, &row)
	}
	f.SetColWidth(equipmentSheet, "B", "B", 42)
	f.SetColWidth(equipmentSheet, "C", "C", 35)
	f.SetColWidth(equipmentSheet, "D", "F", 45)

	taskSheet := "Задачи обслуживания"
	if _, err := f.NewSheet(taskSheet); err != nil {
		c.logger.Error("GetEquipmentReport: не удалось создать лист", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	f.SetSheetRow(taskSheet, "A1", &taskHeaders)
	f.SetCellStyle(taskSheet, "A1", "I1", bold)
	for i, item := range data.Tasks {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := taskRow(i+1, item)
		f.SetSheetRow(taskSheet, cell, &row)
		if item.Overdue {
			last, _ := excelize.CoordinatesToCellName(len(taskHeaders), i+2)
			f.SetCellStyle(taskSheet, cell, last, overdueStyle)
		}
	}
	f.SetColWidth(taskSheet, "B", "C", 42)
	f.SetColWidth(taskSheet, "D", "D", 30)
	f.SetColWidth(taskSheet, "I", "I", 50)

	fileName := fmt.Sprintf("equipment_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
