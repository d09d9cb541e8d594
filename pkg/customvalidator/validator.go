package customvalidator

import (
	"reflect"
	"strings"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
)

// New собирает валидатор со всеми нашими правилами. Паникует, если правило не
// зарегистрировалось: сервер не должен стартовать без валидации.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	registerNullTypes(v)
	if err := RegisterCustomValidations(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}
	return v
}

// RegisterCustomValidations регистрирует теги, которые мы используем в struct tags.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("maintenance_type", isMaintenanceType); err != nil {
		return err
	}
	if err := v.RegisterValidation("schedule", isSchedule); err != nil {
		return err
	}
	return nil
}

// isMaintenanceType - Calibration или PM
func isMaintenanceType(fl validator.FieldLevel) bool {
	return entities.MaintenanceType(fl.Field().String()).Valid()
}

// isSchedule - RFC 3339 или YYYY-MM-DD
func isSchedule(fl validator.FieldLevel) bool {
	_, ok := utils.ParseSchedule(fl.Field().String())
	return ok
}

// jsonFieldName - в ошибках показываем имя поля из JSON, а не из Go.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// registerNullTypes учит валидатор "смотреть внутрь" null.String и null.Int.
func registerNullTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.String); ok && val.Valid {
			return val.String
		}
		return nil // чтобы сработал omitempty
	}, null.String{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(null.Int); ok && val.Valid {
			return val.Int
		}
		return nil
	}, null.Int{})
}
