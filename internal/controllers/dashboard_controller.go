package controllers

import (
	"net/http"

	"github.com/revenant-13/maintenance-app/internal/services"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type DashboardController struct {
	dashboardService services.DashboardServiceInterface
	logger           *zap.Logger
}

func NewDashboardController(ds services.DashboardServiceInterface, logger *zap.Logger) *DashboardController {
	return &DashboardController{
		dashboardService: ds,
		logger:           logger,
	}
}

func (ctrl *DashboardController) GetDashboardStats(c echo.Context) error {
	stats, err := ctrl.dashboardService.GetDashboardStats(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, stats, "Статистика для дашборда получена", http.StatusOK)
}
