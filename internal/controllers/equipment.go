package controllers

import (
	"net/http"
	"strings"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	"github.com/revenant-13/maintenance-app/internal/services"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type EquipmentController struct {
	equipmentService services.EquipmentServiceInterface
	logger           *zap.Logger
}

func NewEquipmentController(
	service services.EquipmentServiceInterface,
	logger *zap.Logger,
) *EquipmentController {
	return &EquipmentController{
		equipmentService: service,
		logger:           logger,
	}
}

// GetEquipments - GET /equipment?parentId=&roots=true&inventoryId=&ids=a,b
func (c *EquipmentController) GetEquipments(ctx echo.Context) error {
	filter := repositories.EquipmentFilter{
		ParentID:    strings.TrimSpace(ctx.QueryParam("parentId")),
		InventoryID: strings.TrimSpace(ctx.QueryParam("inventoryId")),
	}
	if roots := utils.ParseBoolQuery(ctx, "roots"); roots != nil {
		filter.RootsOnly = *roots
	}
	if ids := ctx.QueryParam("ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.IDs = append(filter.IDs, id)
			}
		}
	}

	res, err := c.equipmentService.GetEquipments(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("GetEquipments: ошибка при получении списка оборудования", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Список оборудования успешно получен", http.StatusOK)
}

func (c *EquipmentController) FindEquipment(ctx echo.Context) error {
	res, err := c.equipmentService.FindEquipment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно найдено", http.StatusOK)
}

func (c *EquipmentController) CreateEquipment(ctx echo.Context) error {
	var payload dto.CreateEquipmentDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("CreateEquipment: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.CreateEquipment(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно создано", http.StatusCreated)
}

func (c *EquipmentController) UpdateEquipment(ctx echo.Context) error {
	var payload dto.UpdateEquipmentDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Warn("UpdateEquipment: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.UpdateEquipment(ctx.Request().Context(), ctx.Param("id"), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно обновлено", http.StatusOK)
}

// DeleteEquipment: если каскад встретил висячие ссылки, удаление уже
// зафиксировано, но успехом это не считается: статус ошибки (404) и
// status=false, в теле результат каскада с перечнем пропущенных id.
func (c *EquipmentController) DeleteEquipment(ctx echo.Context) error {
	res, err := c.equipmentService.DeleteEquipment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if res == nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		c.logger.Warn("DeleteEquipment: пропущены висячие ссылки", zap.String("id", res.ID), zap.Error(err))
		return ctx.JSON(apperrors.HTTPStatus(err), &utils.HTTPResponse{
			Status:  false,
			Body:    res,
			Message: "Оборудование удалено, но найдены висячие ссылки: " + strings.Join(res.DanglingIDs, ", "),
		})
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно удалено", http.StatusOK)
}

func (c *EquipmentController) GetDescendants(ctx echo.Context) error {
	res, err := c.equipmentService.GetDescendants(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Потомки оборудования получены", http.StatusOK)
}

func (c *EquipmentController) GetAncestors(ctx echo.Context) error {
	res, err := c.equipmentService.GetAncestors(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Предки оборудования получены", http.StatusOK)
}

func (c *EquipmentController) GetTree(ctx echo.Context) error {
	res, err := c.equipmentService.GetTree(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Дерево оборудования получено", http.StatusOK)
}

func (c *EquipmentController) CheckIntegrity(ctx echo.Context) error {
	res, err := c.equipmentService.CheckIntegrity(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	message := "Нарушений целостности не найдено"
	if !res.OK() {
		message = "Найдены нарушения целостности иерархии"
	}
	return utils.SuccessResponse(ctx, res, message, http.StatusOK)
}
