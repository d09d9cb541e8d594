package repositories

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func columns(cols []string) string {
	return strings.Join(cols, ", ")
}

func returning(cols []string) string {
	return "RETURNING " + columns(cols)
}

// pgError переводит ошибки драйвера в ошибки приложения. Ошибки сериализации
// не трогает: их распознаёт RunWithRetry.
func pgError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperrors.NewConflictError("%s %q already exists", entity, id)
		case "23503":
			return apperrors.NewConflictError("%s %q references a missing record: %s", entity, id, pgErr.ConstraintName)
		case "23514":
			return apperrors.NewValidationError("", "%s %q violates %s", entity, id, pgErr.ConstraintName)
		}
	}
	return apperrors.NewStoreError(fmt.Sprintf("%s %s", op, entity), err)
}
