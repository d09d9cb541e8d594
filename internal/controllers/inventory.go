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

type InventoryController struct {
	inventoryService services.InventoryServiceInterface
	logger           *zap.Logger
}

func NewInventoryController(service services.InventoryServiceInterface, logger *zap.Logger) *InventoryController {
	return &InventoryController{inventoryService: service, logger: logger}
}

func (c *InventoryController) GetInventory(ctx echo.Context) error {
	res, err := c.inventoryService.GetInventory(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Список склада получен", http.StatusOK)
}

func (c *InventoryController) FindInventory(ctx echo.Context) error {
	res, err := c.inventoryService.FindInventory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Позиция склада найдена", http.StatusOK)
}

func (c *InventoryController) CreateInventory(ctx echo.Context) error {
	var payload dto.CreateInventoryDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("CreateInventory: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.inventoryService.CreateInventory(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Позиция склада создана", http.StatusCreated)
}

func (c *InventoryController) UpdateInventory(ctx echo.Context) error {
	var payload dto.UpdateInventoryDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("UpdateInventory: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.inventoryService.UpdateInventory(ctx.Request().Context(), ctx.Param("id"), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Позиция склада обновлена", http.StatusOK)
}

func (c *InventoryController) DeleteInventory(ctx echo.Context) error {
	if err := c.inventoryService.DeleteInventory(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Позиция склада удалена", http.StatusOK)
}
