package routes

import (
	"github.com/revenant-13/maintenance-app/internal/controllers"
	"github.com/revenant-13/maintenance-app/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func runReportRouter(
	e *echo.Echo,
	dashboardService services.DashboardServiceInterface,
	reportService services.ReportServiceInterface,
	logger *zap.Logger,
) {
	dashboardController := controllers.NewDashboardController(dashboardService, logger)
	reportController := controllers.NewReportController(reportService, logger)

	e.GET("/dashboard", dashboardController.GetDashboardStats)
	e.GET("/reports/equipment", reportController.GetEquipmentReport)
}
