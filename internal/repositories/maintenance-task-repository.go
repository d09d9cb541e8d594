package repositories

import (
	"context"

	"github.com/revenant-13/maintenance-app/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const taskTable = "maintenance_tasks"

var taskColumns = []string{"id", "equipment_id", "type", "schedule", "description", "completed", "created_at", "updated_at"}

var _ MaintenanceTaskStore = (*MaintenanceTaskRepository)(nil)

type MaintenanceTaskRepository struct {
	q querier
}

func scanTask(row pgx.Row) (*entities.MaintenanceTask, error) {
	var (
		t        entities.MaintenanceTask
		taskType string
	)
	err := row.Scan(&t.ID, &t.EquipmentID, &taskType, &t.Schedule, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = entities.MaintenanceType(taskType)
	t.Schedule = t.Schedule.UTC()
	return &t, nil
}

func (r *MaintenanceTaskRepository) Find(ctx context.Context, id string) (*entities.MaintenanceTask, error) {
	query, args, err := psql.Select(taskColumns...).From(taskTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, pgError("build", "maintenance task", id, err)
	}
	t, err := scanTask(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("find", "maintenance task", id, err)
	}
	return t, nil
}

func (r *MaintenanceTaskRepository) FindMany(ctx context.Context, filter TaskFilter) ([]entities.MaintenanceTask, error) {
	builder := psql.Select(taskColumns...).From(taskTable).OrderBy("schedule", "id")
	if filter.EquipmentID != "" {
		builder = builder.Where(sq.Eq{"equipment_id": filter.EquipmentID})
	}
	if filter.Completed != nil {
		builder = builder.Where(sq.Eq{"completed": *filter.Completed})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, pgError("build", "maintenance task", "", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, pgError("query", "maintenance task", "", err)
	}
	defer rows.Close()

	result := make([]entities.MaintenanceTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, pgError("scan", "maintenance task", "", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("query", "maintenance task", "", err)
	}
	return result, nil
}

func (r *MaintenanceTaskRepository) Insert(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error) {
	query, args, err := psql.Insert(taskTable).
		Columns("id", "equipment_id", "type", "schedule", "description", "completed").
		Values(t.ID, t.EquipmentID, string(t.Type), t.Schedule, t.Description, t.Completed).
		Suffix(returning(taskColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "maintenance task", t.ID, err)
	}
	saved, err := scanTask(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("insert", "maintenance task", t.ID, err)
	}
	return saved, nil
}

func (r *MaintenanceTaskRepository) Update(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error) {
	query, args, err := psql.Update(taskTable).
		SetMap(map[string]interface{}{
			"equipment_id": t.EquipmentID,
			"type":         string(t.Type),
			"schedule":     t.Schedule,
			"description":  t.Description,
			"completed":    t.Completed,
			"updated_at":   sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": t.ID}).
		Suffix(returning(taskColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "maintenance task", t.ID, err)
	}
	updated, err := scanTask(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("update", "maintenance task", t.ID, err)
	}
	return updated, nil
}

func (r *MaintenanceTaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.Delete(taskTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, pgError("build", "maintenance task", id, err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, pgError("delete", "maintenance task", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MaintenanceTaskRepository) DeleteByEquipmentID(ctx context.Context, equipmentID string) (int, error) {
	query, args, err := psql.Delete(taskTable).Where(sq.Eq{"equipment_id": equipmentID}).ToSql()
	if err != nil {
		return 0, pgError("build", "maintenance task", equipmentID, err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, pgError("delete", "maintenance task", equipmentID, err)
	}
	return int(tag.RowsAffected()), nil
}
