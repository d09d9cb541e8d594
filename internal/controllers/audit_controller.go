package controllers

import (
	"net/http"
	"strconv"

	"github.com/revenant-13/maintenance-app/internal/listeners"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultAuditLimit = 50

type AuditController struct {
	audit  *listeners.AuditListener
	logger *zap.Logger
}

func NewAuditController(audit *listeners.AuditListener, logger *zap.Logger) *AuditController {
	return &AuditController{audit: audit, logger: logger}
}

// GetRecent - GET /audit?limit=N, новые записи первыми.
func (c *AuditController) GetRecent(ctx echo.Context) error {
	limit := defaultAuditLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return utils.SuccessResponse(ctx, c.audit.Recent(limit), "Журнал изменений получен", http.StatusOK)
}
