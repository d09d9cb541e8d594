package repositories

import (
	"context"

	"github.com/revenant-13/maintenance-app/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const inventoryTable = "inventory"

var inventoryColumns = []string{"id", "name", "stock", "category", "created_at", "updated_at"}

var _ InventoryStore = (*InventoryRepository)(nil)

type InventoryRepository struct {
	q querier
}

func scanInventory(row pgx.Row) (*entities.Inventory, error) {
	var item entities.Inventory
	if err := row.Scan(&item.ID, &item.Name, &item.Stock, &item.Category, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *InventoryRepository) Find(ctx context.Context, id string) (*entities.Inventory, error) {
	query, args, err := psql.Select(inventoryColumns...).From(inventoryTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, pgError("build", "inventory", id, err)
	}
	item, err := scanInventory(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("find", "inventory", id, err)
	}
	return item, nil
}

func (r *InventoryRepository) FindMany(ctx context.Context, ids []string) ([]entities.Inventory, error) {
	builder := psql.Select(inventoryColumns...).From(inventoryTable).OrderBy("name", "id")
	if len(ids) > 0 {
		builder = builder.Where(sq.Eq{"id": ids})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, pgError("build", "inventory", "", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, pgError("query", "inventory", "", err)
	}
	defer rows.Close()

	result := make([]entities.Inventory, 0, len(ids))
	for rows.Next() {
		item, err := scanInventory(rows)
		if err != nil {
			return nil, pgError("scan", "inventory", "", err)
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("query", "inventory", "", err)
	}
	return result, nil
}

func (r *InventoryRepository) Insert(ctx context.Context, item entities.Inventory) (*entities.Inventory, error) {
	query, args, err := psql.Insert(inventoryTable).
		Columns("id", "name", "stock", "category").
		Values(item.ID, item.Name, item.Stock, item.Category).
		Suffix(returning(inventoryColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "inventory", item.ID, err)
	}
	saved, err := scanInventory(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("insert", "inventory", item.ID, err)
	}
	return saved, nil
}

func (r *InventoryRepository) UpdateFields(ctx context.Context, id string, patch InventoryPatch) (*entities.Inventory, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("now()")}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}

	query, args, err := psql.Update(inventoryTable).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix(returning(inventoryColumns)).
		ToSql()
	if err != nil {
		return nil, pgError("build", "inventory", id, err)
	}
	updated, err := scanInventory(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, pgError("update", "inventory", id, err)
	}
	return updated, nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.Delete(inventoryTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, pgError("build", "inventory", id, err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, pgError("delete", "inventory", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
