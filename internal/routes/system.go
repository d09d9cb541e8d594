package routes

import (
	"github.com/revenant-13/maintenance-app/internal/controllers"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func runSystemRouter(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	healthController := controllers.NewHealthController(deps.Tx, deps.Backend, logger)

	e.GET("/health", healthController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if deps.Audit != nil {
		auditController := controllers.NewAuditController(deps.Audit, logger)
		e.GET("/audit", auditController.GetRecent)
	}
}
