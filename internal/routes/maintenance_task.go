package routes

import (
	"github.com/revenant-13/maintenance-app/internal/controllers"
	"github.com/revenant-13/maintenance-app/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func runMaintenanceTaskRouter(e *echo.Echo, taskService services.MaintenanceTaskServiceInterface, logger *zap.Logger) {
	taskCtrl := controllers.NewMaintenanceTaskController(taskService, logger)

	e.GET("/maintenance-tasks", taskCtrl.GetTasks)
	e.POST("/maintenance-tasks", taskCtrl.CreateTask)
	e.GET("/maintenance-tasks/:id", taskCtrl.FindTask)
	e.PUT("/maintenance-tasks/:id", taskCtrl.UpdateTask)
	e.DELETE("/maintenance-tasks/:id", taskCtrl.DeleteTask)
}
