package routes

import (
	"github.com/revenant-13/maintenance-app/internal/controllers"
	"github.com/revenant-13/maintenance-app/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func runEquipmentRouter(e *echo.Echo, equipmentService services.EquipmentServiceInterface, logger *zap.Logger) {
	equipmentCtrl := controllers.NewEquipmentController(equipmentService, logger)

	e.GET("/equipment", equipmentCtrl.GetEquipments)
	e.POST("/equipment", equipmentCtrl.CreateEquipment)
	e.GET("/equipment/tree", equipmentCtrl.GetTree)
	e.GET("/equipment/integrity", equipmentCtrl.CheckIntegrity)
	e.GET("/equipment/:id", equipmentCtrl.FindEquipment)
	e.PUT("/equipment/:id", equipmentCtrl.UpdateEquipment)
	e.DELETE("/equipment/:id", equipmentCtrl.DeleteEquipment)
	e.GET("/equipment/:id/descendants", equipmentCtrl.GetDescendants)
	e.GET("/equipment/:id/ancestors", equipmentCtrl.GetAncestors)
}
