package dto

import (
	"encoding/json"

	"github.com/aarondl/null/v8"
)

type CreateMaintenanceTaskDTO struct {
	EquipmentID string      `json:"equipmentId" validate:"required,max=128"`
	Type        string      `json:"type"        validate:"required,maintenance_type"`
	Schedule    string      `json:"schedule"    validate:"required,schedule"`
	Description null.String `json:"description" validate:"omitempty,max=2000"`
	Completed   bool        `json:"completed"`
}

type UpdateMaintenanceTaskDTO struct {
	EquipmentID *string     `json:"equipmentId" validate:"omitempty,min=1,max=128"`
	Type        *string     `json:"type"        validate:"omitempty,maintenance_type"`
	Schedule    *string     `json:"schedule"    validate:"omitempty,schedule"`
	Description null.String `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool       `json:"completed"`

	sent sentFields
}

func (d *UpdateMaintenanceTaskDTO) UnmarshalJSON(data []byte) error {
	type plain UpdateMaintenanceTaskDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	sent, err := collectSentFields(data)
	if err != nil {
		return err
	}
	*d = UpdateMaintenanceTaskDTO(p)
	d.sent = sent
	return nil
}

func (d UpdateMaintenanceTaskDTO) HasDescription() bool { return d.sent.has("description") }

// MaintenanceTaskDTO - задача с вычисленным признаком просрочки.
type MaintenanceTaskDTO struct {
	ID          string      `json:"id"`
	EquipmentID string      `json:"equipmentId"`
	Type        string      `json:"type"`
	Schedule    string      `json:"schedule"`
	Description null.String `json:"description"`
	Completed   bool        `json:"completed"`
	Overdue     bool        `json:"overdue"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}
