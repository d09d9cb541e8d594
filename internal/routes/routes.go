package routes

import (
	"time"

	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/listeners"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	"github.com/revenant-13/maintenance-app/internal/services"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dependencies - всё, что роутеру нужно получить снаружи. Создаётся в app.
type Dependencies struct {
	Tx       repositories.TxManagerInterface
	Backend  string
	Cache    repositories.CacheRepositoryInterface
	CacheTTL time.Duration
	Bus      *eventbus.Bus
	Audit    *listeners.AuditListener
}

func InitRouter(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	logger.Info("InitRouter: Начало создания маршрутов")

	// --- 1. СЕРВИСЫ ---
	base := services.NewBaseService(deps.Cache, deps.CacheTTL, logger)
	engine := hierarchy.NewEngine(deps.Tx)

	equipmentService := services.NewEquipmentService(base, engine, deps.Bus, logger)
	inventoryService := services.NewInventoryService(deps.Tx, deps.Bus, logger)
	taskService := services.NewMaintenanceTaskService(deps.Tx, deps.Bus, logger)
	dashboardService := services.NewDashboardService(base, deps.Tx, logger)
	reportService := services.NewReportService(deps.Tx, logger)

	// --- 2. РОУТЕРЫ ---
	runEquipmentRouter(e, equipmentService, logger)
	runInventoryRouter(e, inventoryService, logger)
	runMaintenanceTaskRouter(e, taskService, logger)
	runReportRouter(e, dashboardService, reportService, logger)
	runSystemRouter(e, deps, logger)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено")
}
