package routes

import (
	"github.com/revenant-13/maintenance-app/internal/controllers"
	"github.com/revenant-13/maintenance-app/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func runInventoryRouter(e *echo.Echo, inventoryService services.InventoryServiceInterface, logger *zap.Logger) {
	inventoryCtrl := controllers.NewInventoryController(inventoryService, logger)

	e.GET("/inventory", inventoryCtrl.GetInventory)
	e.POST("/inventory", inventoryCtrl.CreateInventory)
	e.GET("/inventory/:id", inventoryCtrl.FindInventory)
	e.PUT("/inventory/:id", inventoryCtrl.UpdateInventory)
	e.DELETE("/inventory/:id", inventoryCtrl.DeleteInventory)
}
