package repositories

import (
	"context"

	"github.com/revenant-13/maintenance-app/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const equipmentTable = "equipment"

var equipmentColumns = []string{"id", "name", "parent_id", "part_ids", "inventory_part_ids", "created_at", "updated_at"}

var _ EquipmentStore = (*EquipmentRepository)(nil)

// EquipmentRepository stores equipment rows; part_ids and inventory_part_ids are text[].
type EquipmentRepository struct {
	q querier
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	err := row.Scan(&e.ID, &e.Name, &e.ParentID, &e.PartIDs, &e.InventoryPartIDs, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	out := e.Clone()
	return &out, nil
}

func (r *EquipmentRepository) Find(ctx context.Context, id string) (*entities.Equipment, error) {
	query, args, err := psql.Select(equipmentColumns...).
		From(equipmentTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, pgError("build", "equipment", id, err)
	}

	e, err := scanEquipment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("find", "equipment", id, err)
	}
	return e, nil
}

func (r *EquipmentRepository) FindMany(ctx context.Context, filter EquipmentFilter) ([]entities.Equipment, error) {
	builder := psql.Select(equipmentColumns...).From(equipmentTable).OrderBy("name", "id")

	if len(filter.IDs) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.ParentID != "" {
		builder = builder.Where(sq.Eq{"parent_id": filter.ParentID})
	}
	if filter.RootsOnly {
		builder = builder.Where(sq.Eq{"parent_id": nil})
	}
	if filter.InventoryID != "" {
		builder = builder.Where(sq.Expr("? = ANY(inventory_part_ids)", filter.InventoryID))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, pgError("build", "equipment", "", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, pgError("query", "equipment", "", err)
	}
	defer rows.Close()

	result := make([]entities.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, pgError("scan", "equipment", "", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("query", "equipment", "", err)
	}
	return result, nil
}

func (r *EquipmentRepository) Insert(ctx context.Context, e entities.Equipment) (*entities.Equipment, error) {
	e = e.Clone()
	query, args, err := psql.Insert(equipmentTable).
		Columns("id", "name", "parent_id", "part_ids", "inventory_part_ids").
		Values(e.ID, e.Name, e.ParentID, e.PartIDs, e.InventoryPartIDs).
		Suffix(returning(equipmentColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "equipment", e.ID, err)
	}

	saved, err := scanEquipment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("insert", "equipment", e.ID, err)
	}
	return saved, nil
}

func (r *EquipmentRepository) UpdateFields(ctx context.Context, id string, patch EquipmentPatch) (*entities.Equipment, error) {
	if patch.Empty() {
		return r.Find(ctx, id)
	}

	set := map[string]interface{}{"updated_at": sq.Expr("now()")}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.ParentID != nil {
		set["parent_id"] = *patch.ParentID
	}
	if patch.PartIDs != nil {
		set["part_ids"] = nonNil(*patch.PartIDs)
	}
	if patch.InventoryPartIDs != nil {
		set["inventory_part_ids"] = nonNil(*patch.InventoryPartIDs)
	}

	query, args, err := psql.Update(equipmentTable).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix(returning(equipmentColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "equipment", id, err)
	}

	updated, err := scanEquipment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("update", "equipment", id, err)
	}
	return updated, nil
}

func (r *EquipmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.Delete(equipmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, pgError("build", "equipment", id, err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, pgError("delete", "equipment", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
