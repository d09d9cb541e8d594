package repositories

import (
	"context"

	"github.com/revenant-13/maintenance-app/internal/entities"

	"github.com/aarondl/null/v8"
)

// EquipmentFilter narrows FindMany. Zero value matches everything.
type EquipmentFilter struct {
	IDs         []string
	ParentID    string
	RootsOnly   bool
	InventoryID string
}

func (f EquipmentFilter) Match(e entities.Equipment) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}
	if f.ParentID != "" && (!e.ParentID.Valid || e.ParentID.String != f.ParentID) {
		return false
	}
	if f.RootsOnly && e.ParentID.Valid {
		return false
	}
	if f.InventoryID != "" && !containsString(e.InventoryPartIDs, f.InventoryID) {
		return false
	}
	return true
}

// EquipmentPatch lists the fields UpdateFields writes; nil fields are left as stored.
type EquipmentPatch struct {
	Name             *string
	ParentID         *null.String
	PartIDs          *[]string
	InventoryPartIDs *[]string
}

func (p EquipmentPatch) Empty() bool {
	return p.Name == nil && p.ParentID == nil && p.PartIDs == nil && p.InventoryPartIDs == nil
}

func (p EquipmentPatch) Apply(e *entities.Equipment) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.ParentID != nil {
		e.ParentID = *p.ParentID
	}
	if p.PartIDs != nil {
		e.PartIDs = append([]string{}, (*p.PartIDs)...)
	}
	if p.InventoryPartIDs != nil {
		e.InventoryPartIDs = append([]string{}, (*p.InventoryPartIDs)...)
	}
}

type InventoryPatch struct {
	Name     *string
	Stock    *int
	Category *null.String
}

func (p InventoryPatch) Apply(i *entities.Inventory) {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Stock != nil {
		i.Stock = *p.Stock
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
}

type TaskFilter struct {
	EquipmentID string
	Completed   *bool
}

func (f TaskFilter) Match(t entities.MaintenanceTask) bool {
	if f.EquipmentID != "" && t.EquipmentID != f.EquipmentID {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	return true
}

// EquipmentStore - коллекция оборудования. Find и UpdateFields возвращают
// apperrors.ErrNotFound, если записи нет.
type EquipmentStore interface {
	Find(ctx context.Context, id string) (*entities.Equipment, error)
	FindMany(ctx context.Context, filter EquipmentFilter) ([]entities.Equipment, error)
	Insert(ctx context.Context, e entities.Equipment) (*entities.Equipment, error)
	UpdateFields(ctx context.Context, id string, patch EquipmentPatch) (*entities.Equipment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type InventoryStore interface {
	Find(ctx context.Context, id string) (*entities.Inventory, error)
	FindMany(ctx context.Context, ids []string) ([]entities.Inventory, error)
	Insert(ctx context.Context, i entities.Inventory) (*entities.Inventory, error)
	UpdateFields(ctx context.Context, id string, patch InventoryPatch) (*entities.Inventory, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type MaintenanceTaskStore interface {
	Find(ctx context.Context, id string) (*entities.MaintenanceTask, error)
	FindMany(ctx context.Context, filter TaskFilter) ([]entities.MaintenanceTask, error)
	Insert(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error)
	Update(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByEquipmentID(ctx context.Context, equipmentID string) (int, error)
}

// UnitOfWork exposes the collections bound to one transaction.
type UnitOfWork interface {
	Equipment() EquipmentStore
	Inventory() InventoryStore
	Tasks() MaintenanceTaskStore
}

type TxManagerInterface interface {
	// RunInTransaction runs fn in a read-write transaction. When the store reports a
	// write conflict the whole fn is executed again against fresh state.
	RunInTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error
	RunReadOnly(ctx context.Context, fn func(uow UnitOfWork) error) error
}

func containsString(values []string, id string) bool {
	for _, v := range values {
		if v == id {
			return true
		}
	}
	return false
}
