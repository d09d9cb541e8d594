package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// Общие
	ErrNotFound   = fmt.Errorf("record not found")
	ErrBadRequest = fmt.Errorf("bad request")

	// Иерархия оборудования
	ErrValidation = fmt.Errorf("validation failed")
	ErrCycle      = fmt.Errorf("hierarchy cycle")
	ErrConflict   = fmt.Errorf("conflict")

	// Хранилище
	ErrStore = fmt.Errorf("store failure")
)

// ValidationError - a required field is missing or a request contradicts itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field string, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CycleError - making ChildID a child of ParentID would make an equipment its own ancestor.
type CycleError struct {
	ParentID string
	ChildID  string
}

func (e *CycleError) Error() string {
	if e.ParentID == e.ChildID {
		return fmt.Sprintf("equipment %q cannot be its own parent", e.ChildID)
	}
	return fmt.Sprintf("equipment %q cannot be placed under %q: %q is its descendant", e.ChildID, e.ParentID, e.ParentID)
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

func NewCycleError(parentID, childID string) error {
	return &CycleError{ParentID: parentID, ChildID: childID}
}

// NotFoundError - one or more referenced records do not exist.
type NotFoundError struct {
	Entity string
	IDs    []string
	Detail string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(e.IDs, ", "))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entity string, ids ...string) error {
	return &NotFoundError{Entity: entity, IDs: ids}
}

// ConflictError - the operation is valid in shape but clashes with current state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// StoreError оборачивает ошибку драйвера хранилища без потери исходной ошибки.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// HttpError - ошибка, которую контроллер отдаёт клиенту.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// HTTPStatus maps domain errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCycle), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
