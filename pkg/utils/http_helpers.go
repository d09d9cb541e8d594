package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

// CustomValidator - обертка для echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator(v *validator.Validate) *CustomValidator {
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// ParseBoolQuery возвращает nil, если параметр не передан или не является bool.
func ParseBoolQuery(c echo.Context, name string) *bool {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{Status: true, Body: body, Message: message})
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Error("HTTP Error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}

		response := map[string]interface{}{
			"status":  false,
			"message": httpErr.Message,
		}
		if httpErr.Details != nil {
			response["body"] = httpErr.Details
		}
		return c.JSON(httpErr.Code, response)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("Поле '%s' не прошло проверку '%s'", e.Field(), e.Tag()))
		}
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"status": false, "message": "Ошибка валидации: " + strings.Join(msgs, "; ")})
	}

	code := apperrors.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		logger.Error("Unexpected Error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  false,
			"message": "Внутренняя ошибка сервера",
		})
	}

	response := map[string]interface{}{
		"status":  false,
		"message": err.Error(),
	}
	if details := domainDetails(err); details != nil {
		response["body"] = details
	}
	return c.JSON(code, response)
}

func domainDetails(err error) map[string]interface{} {
	var cycleErr *apperrors.CycleError
	if errors.As(err, &cycleErr) {
		return map[string]interface{}{"parentId": cycleErr.ParentID, "childId": cycleErr.ChildID}
	}
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		return map[string]interface{}{"entity": notFound.Entity, "ids": notFound.IDs}
	}
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		return map[string]interface{}{"field": validationErr.Field}
	}
	return nil
}
