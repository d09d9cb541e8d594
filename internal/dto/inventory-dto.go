package dto

import (
	"encoding/json"

	"github.com/aarondl/null/v8"
)

type CreateInventoryDTO struct {
	ID       string      `json:"id"       validate:"omitempty,max=128"`
	Name     string      `json:"name"     validate:"required,max=255"`
	Stock    int         `json:"stock"    validate:"gte=0"`
	Category null.String `json:"category" validate:"omitempty,max=128"`
}

type UpdateInventoryDTO struct {
	Name     *string     `json:"name"     validate:"omitempty,min=1,max=255"`
	Stock    *int        `json:"stock"    validate:"omitempty,gte=0"`
	Category null.String `json:"category" validate:"omitempty,max=128"`

	sent sentFields
}

func (d *UpdateInventoryDTO) UnmarshalJSON(data []byte) error {
	type plain UpdateInventoryDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	sent, err := collectSentFields(data)
	if err != nil {
		return err
	}
	*d = UpdateInventoryDTO(p)
	d.sent = sent
	return nil
}

func (d UpdateInventoryDTO) HasCategory() bool { return d.sent.has("category") }
