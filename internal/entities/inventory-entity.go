package entities

import (
	"github.com/revenant-13/maintenance-app/pkg/types"

	"github.com/aarondl/null/v8"
)

type Inventory struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Stock    int         `json:"stock"`
	Category null.String `json:"category"`

	types.BaseEntity
}

func (i Inventory) OutOfStock() bool { return i.Stock == 0 }
