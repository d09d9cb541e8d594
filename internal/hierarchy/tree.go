package hierarchy

import (
	"sort"

	"github.com/revenant-13/maintenance-app/internal/entities"
)

type Node struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	InventoryPartIDs []string `json:"inventoryPartIds"`
	Depth            int      `json:"depth"`
	Children         []*Node  `json:"children"`
}

// BuildTree nests a snapshot into a forest using parentId. Records whose parent
// is missing from the snapshot are treated as roots. Siblings are ordered by
// name, then id.
func BuildTree(equipment []entities.Equipment) []*Node {
	byID := make(map[string]entities.Equipment, len(equipment))
	for _, e := range equipment {
		byID[e.ID] = e
	}

	children := make(map[string][]entities.Equipment)
	var roots []entities.Equipment
	for _, e := range equipment {
		if e.ParentID.Valid {
			if _, ok := byID[e.ParentID.String]; ok {
				children[e.ParentID.String] = append(children[e.ParentID.String], e)
				continue
			}
		}
		roots = append(roots, e)
	}

	visited := make(map[string]struct{}, len(equipment))
	var build func(list []entities.Equipment, depth int) []*Node
	build = func(list []entities.Equipment, depth int) []*Node {
		sortEquipment(list)
		nodes := make([]*Node, 0, len(list))
		for _, e := range list {
			if _, ok := visited[e.ID]; ok {
				continue
			}
			visited[e.ID] = struct{}{}
			nodes = append(nodes, &Node{
				ID:               e.ID,
				Name:             e.Name,
				InventoryPartIDs: append([]string{}, e.InventoryPartIDs...),
				Depth:            depth,
				Children:         build(children[e.ID], depth+1),
			})
		}
		return nodes
	}
	return build(roots, 0)
}

// Depths maps every id reachable from a root to its distance from that root.
func Depths(forest []*Node) map[string]int {
	out := make(map[string]int)
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out[n.ID] = n.Depth
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

func sortEquipment(list []entities.Equipment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}
