package hierarchy

import (
	"context"
	"errors"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
)

// detector walks the stored hierarchy. All reads go through the store of the
// current unit of work, so it sees writes made earlier in the same transaction.
type detector struct {
	store repositories.EquipmentStore
}

func newDetector(store repositories.EquipmentStore) *detector {
	return &detector{store: store}
}

// lookup returns nil without error for ids that do not exist.
func (d *detector) lookup(ctx context.Context, id string) (*entities.Equipment, error) {
	e, err := d.store.Find(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// walkDescendants visits descendants of id breadth-first, each at most once.
// The start id is never visited even when stored data loops back to it.
// visit returning false stops the walk.
func (d *detector) walkDescendants(ctx context.Context, id string, visit func(childID string) bool) error {
	root, err := d.lookup(ctx, id)
	if err != nil || root == nil {
		return err
	}

	seen := map[string]struct{}{id: {}}
	queue := append([]string(nil), root.PartIDs...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}

		node, err := d.lookup(ctx, next)
		if err != nil {
			return err
		}
		if node == nil {
			continue // висячая ссылка
		}
		if !visit(next) {
			return nil
		}
		queue = append(queue, node.PartIDs...)
	}
	return nil
}

// descendantsOf returns the transitive closure of id's children in BFS order.
func (d *detector) descendantsOf(ctx context.Context, id string) ([]string, error) {
	var out []string
	err := d.walkDescendants(ctx, id, func(childID string) bool {
		out = append(out, childID)
		return true
	})
	return out, err
}

// ancestorsOf returns the parent chain of id, nearest first. A chain that
// loops or points at a missing record ends there.
func (d *detector) ancestorsOf(ctx context.Context, id string) ([]string, error) {
	current, err := d.lookup(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	var out []string
	seen := map[string]struct{}{id: {}}
	for current.ParentID.Valid {
		parentID := current.ParentID.String
		if _, ok := seen[parentID]; ok {
			break
		}
		seen[parentID] = struct{}{}

		parent, err := d.lookup(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		out = append(out, parentID)
		current = parent
	}
	return out, nil
}

// wouldCreateCycle reports whether making subjectID a child of candidateParentID
// would make subjectID its own ancestor.
func (d *detector) wouldCreateCycle(ctx context.Context, candidateParentID, subjectID string) (bool, error) {
	if candidateParentID == subjectID {
		return true, nil
	}
	found := false
	err := d.walkDescendants(ctx, subjectID, func(childID string) bool {
		if childID == candidateParentID {
			found = true
			return false
		}
		return true
	})
	return found, err
}
