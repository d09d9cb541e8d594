package hierarchy

import (
	"fmt"
	"sort"

	"github.com/revenant-13/maintenance-app/internal/entities"

	"github.com/aarondl/null/v8"
)

type ViolationKind string

const (
	ViolationAsymmetricChild   ViolationKind = "asymmetric_child"
	ViolationAsymmetricParent  ViolationKind = "asymmetric_parent"
	ViolationDanglingChild     ViolationKind = "dangling_child"
	ViolationDanglingParent    ViolationKind = "dangling_parent"
	ViolationDanglingInventory ViolationKind = "dangling_inventory"
	ViolationCycle             ViolationKind = "cycle"
	ViolationMultipleParents   ViolationKind = "multiple_parents"
)

type Violation struct {
	Kind        ViolationKind `json:"kind"`
	EquipmentID string        `json:"equipmentId"`
	RelatedID   string        `json:"relatedId,omitempty"`
	Detail      string        `json:"detail"`
}

type IntegrityReport struct {
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
}

func (r IntegrityReport) OK() bool { return len(r.Violations) == 0 }

// CheckIntegrity inspects a snapshot of the whole collection. Pass nil
// inventory to skip inventory reference checks.
func CheckIntegrity(equipment []entities.Equipment, inventory []entities.Inventory) IntegrityReport {
	byID := make(map[string]entities.Equipment, len(equipment))
	for _, e := range equipment {
		byID[e.ID] = e
	}
	var inventoryIDs map[string]struct{}
	if inventory != nil {
		inventoryIDs = make(map[string]struct{}, len(inventory))
		for _, item := range inventory {
			inventoryIDs[item.ID] = struct{}{}
		}
	}

	report := IntegrityReport{Checked: len(equipment), Violations: []Violation{}}
	add := func(kind ViolationKind, id, related, format string, args ...interface{}) {
		report.Violations = append(report.Violations, Violation{
			Kind:        kind,
			EquipmentID: id,
			RelatedID:   related,
			Detail:      fmt.Sprintf(format, args...),
		})
	}

	listedBy := make(map[string][]string)
	for _, e := range equipment {
		for _, childID := range e.PartIDs {
			listedBy[childID] = append(listedBy[childID], e.ID)

			child, ok := byID[childID]
			switch {
			case !ok:
				add(ViolationDanglingChild, e.ID, childID, "partIds references missing equipment %q", childID)
			case !child.ParentID.Valid || child.ParentID.String != e.ID:
				add(ViolationAsymmetricChild, e.ID, childID, "child %q does not point back (parentId=%s)", childID, describeParent(child.ParentID))
			}
		}

		if e.ParentID.Valid {
			parent, ok := byID[e.ParentID.String]
			switch {
			case !ok:
				add(ViolationDanglingParent, e.ID, e.ParentID.String, "parentId references missing equipment %q", e.ParentID.String)
			case !parent.HasPart(e.ID):
				add(ViolationAsymmetricParent, e.ID, e.ParentID.String, "parent %q does not list it in partIds", e.ParentID.String)
			}
		}

		if inventoryIDs != nil {
			for _, invID := range e.InventoryPartIDs {
				if _, ok := inventoryIDs[invID]; !ok {
					add(ViolationDanglingInventory, e.ID, invID, "inventoryPartIds references missing item %q", invID)
				}
			}
		}

		if onCycle(e, byID) {
			add(ViolationCycle, e.ID, "", "equipment is its own ancestor")
		}
	}

	for childID, parents := range listedBy {
		if len(parents) > 1 {
			sort.Strings(parents)
			add(ViolationMultipleParents, childID, parents[0], "listed as a part by %v", parents)
		}
	}

	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.EquipmentID != b.EquipmentID {
			return a.EquipmentID < b.EquipmentID
		}
		return a.RelatedID < b.RelatedID
	})
	return report
}

func describeParent(p null.String) string {
	if !p.Valid {
		return "null"
	}
	return fmt.Sprintf("%q", p.String)
}

// onCycle follows parentId links from e and reports whether they lead back to e.
func onCycle(e entities.Equipment, byID map[string]entities.Equipment) bool {
	seen := map[string]struct{}{}
	current := e
	for current.ParentID.Valid {
		parentID := current.ParentID.String
		if parentID == e.ID {
			return true
		}
		if _, ok := seen[parentID]; ok {
			return false
		}
		seen[parentID] = struct{}{}

		parent, ok := byID[parentID]
		if !ok {
			return false
		}
		current = parent
	}
	return false
}
