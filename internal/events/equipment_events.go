package events

import (
	"github.com/revenant-13/maintenance-app/internal/entities"
)

const (
	EquipmentCreated = "equipment.created"
	EquipmentUpdated = "equipment.updated"
	EquipmentDeleted = "equipment.deleted"
	InventoryChanged = "inventory.changed"
	TaskChanged      = "maintenance_task.changed"
)

// EquipmentChangedEvent - оборудование создано или изменено.
type EquipmentChangedEvent struct {
	Kind      string
	Equipment entities.Equipment
}

func (e EquipmentChangedEvent) Name() string { return e.Kind }

// EquipmentDeletedEvent carries what the cascade touched.
type EquipmentDeletedEvent struct {
	ID               string
	DetachedChildren []string
	UnlinkedParent   string
	RemovedTasks     int
	DanglingIDs      []string
}

func (e EquipmentDeletedEvent) Name() string { return EquipmentDeleted }

type InventoryChangedEvent struct {
	Action string // created, updated, deleted
	ID     string
}

func (e InventoryChangedEvent) Name() string { return InventoryChanged }

type TaskChangedEvent struct {
	Action      string
	ID          string
	EquipmentID string
}

func (e TaskChangedEvent) Name() string { return TaskChanged }
