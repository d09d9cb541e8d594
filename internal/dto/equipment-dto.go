package dto

import (
	"encoding/json"

	"github.com/aarondl/null/v8"
)

type CreateEquipmentDTO struct {
	ID               string      `json:"id"               validate:"omitempty,max=128"`
	Name             string      `json:"name"             validate:"required,max=255"`
	ParentID         null.String `json:"parentId"         validate:"omitempty,max=128"`
	PartIDs          []string    `json:"partIds"          validate:"omitempty,dive,required,max=128"`
	InventoryPartIDs []string    `json:"inventoryPartIds" validate:"omitempty,dive,required,max=128"`
}

// UpdateEquipmentDTO - частичное обновление. Поле, которого нет в теле, не
// трогается; "parentId": null делает оборудование корнем.
type UpdateEquipmentDTO struct {
	Name             *string     `json:"name"             validate:"omitempty,max=255"`
	ParentID         null.String `json:"parentId"         validate:"omitempty,max=128"`
	PartIDs          []string    `json:"partIds"          validate:"omitempty,dive,required,max=128"`
	InventoryPartIDs []string    `json:"inventoryPartIds" validate:"omitempty,dive,required,max=128"`

	sent sentFields
}

func (d *UpdateEquipmentDTO) UnmarshalJSON(data []byte) error {
	type plain UpdateEquipmentDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	sent, err := collectSentFields(data)
	if err != nil {
		return err
	}
	*d = UpdateEquipmentDTO(p)
	d.sent = sent
	return nil
}

func (d UpdateEquipmentDTO) HasParentID() bool { return d.sent.has("parentId") }

func (d UpdateEquipmentDTO) HasPartIDs() bool { return d.sent.has("partIds") }

func (d UpdateEquipmentDTO) HasInventoryPartIDs() bool { return d.sent.has("inventoryPartIds") }

// EquipmentDeletedDTO - ответ DELETE /equipment/:id.
type EquipmentDeletedDTO struct {
	ID               string   `json:"id"`
	DetachedChildren []string `json:"detachedChildren"`
	UnlinkedParent   string   `json:"unlinkedParent,omitempty"`
	RemovedTasks     int      `json:"removedTasks"`
	DanglingIDs      []string `json:"danglingIds,omitempty"`
}
