package entities

import (
	"slices"

	"github.com/revenant-13/maintenance-app/pkg/types"

	"github.com/aarondl/null/v8"
)

// Equipment is a node of the part hierarchy. ParentID and PartIDs store the same
// parent/child relation from both ends and must always agree.
type Equipment struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	ParentID         null.String `json:"parentId"`
	PartIDs          []string    `json:"partIds"`
	InventoryPartIDs []string    `json:"inventoryPartIds"`

	types.BaseEntity
}

func (e Equipment) IsRoot() bool { return !e.ParentID.Valid }

func (e Equipment) HasPart(id string) bool { return slices.Contains(e.PartIDs, id) }

// Clone returns a copy that shares no slices with e.
func (e Equipment) Clone() Equipment {
	out := e
	out.PartIDs = cloneIDs(e.PartIDs)
	out.InventoryPartIDs = cloneIDs(e.InventoryPartIDs)
	if e.CreatedAt != nil {
		t := *e.CreatedAt
		out.CreatedAt = &t
	}
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return append(make([]string, 0, len(ids)), ids...)
}
