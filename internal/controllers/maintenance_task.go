package controllers

import (
	"net/http"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/services"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type MaintenanceTaskController struct {
	taskService services.MaintenanceTaskServiceInterface
	logger      *zap.Logger
}

func NewMaintenanceTaskController(service services.MaintenanceTaskServiceInterface, logger *zap.Logger) *MaintenanceTaskController {
	return &MaintenanceTaskController{taskService: service, logger: logger}
}

// GetTasks - GET /maintenance-tasks?equipmentId=&completed=&overdue=
func (c *MaintenanceTaskController) GetTasks(ctx echo.Context) error {
	filter := services.TaskListFilter{
		EquipmentID: ctx.QueryParam("equipmentId"),
		Completed:   utils.ParseBoolQuery(ctx, "completed"),
		Overdue:     utils.ParseBoolQuery(ctx, "overdue"),
	}
	res, err := c.taskService.GetTasks(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Список задач обслуживания получен", http.StatusOK)
}

func (c *MaintenanceTaskController) FindTask(ctx echo.Context) error {
	res, err := c.taskService.FindTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Задача обслуживания найдена", http.StatusOK)
}

func (c *MaintenanceTaskController) CreateTask(ctx echo.Context) error {
	var payload dto.CreateMaintenanceTaskDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("CreateTask: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.taskService.CreateTask(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Задача обслуживания создана", http.StatusCreated)
}

func (c *MaintenanceTaskController) UpdateTask(ctx echo.Context) error {
	var payload dto.UpdateMaintenanceTaskDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("UpdateTask: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.taskService.UpdateTask(ctx.Request().Context(), ctx.Param("id"), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Задача обслуживания обновлена", http.StatusOK)
}

func (c *MaintenanceTaskController) DeleteTask(ctx echo.Context) error {
	if err := c.taskService.DeleteTask(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Задача обслуживания удалена", http.StatusOK)
}
