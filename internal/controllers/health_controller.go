package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HealthController struct {
	tx      repositories.TxManagerInterface
	backend string
	logger  *zap.Logger
}

func NewHealthController(tx repositories.TxManagerInterface, backend string, logger *zap.Logger) *HealthController {
	return &HealthController{tx: tx, backend: backend, logger: logger}
}

// Health открывает read-only транзакцию, чтобы проверить доступность хранилища.
func (c *HealthController) Health(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	err := c.tx.RunReadOnly(reqCtx, func(uow repositories.UnitOfWork) error {
		_, err := uow.Inventory().FindMany(reqCtx, []string{"__health__"})
		return err
	})
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusServiceUnavailable, "Хранилище недоступно", err, map[string]string{"storage": c.backend}), c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]string{"storage": c.backend}, "ok", http.StatusOK)
}
