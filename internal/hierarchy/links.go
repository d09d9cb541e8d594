package hierarchy

import (
	"context"
	"errors"
	"strings"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/aarondl/null/v8"
)

// links performs the single-record writes that keep parentId and partIds
// symmetric. Every method re-reads the record it changes.
type links struct {
	store repositories.EquipmentStore
}

// attachChild adds childID to parentID's partIds once.
func (l links) attachChild(ctx context.Context, parentID, childID string) error {
	parent, err := l.store.Find(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.HasPart(childID) {
		return nil
	}
	parts := append(parent.PartIDs, childID)
	_, err = l.store.UpdateFields(ctx, parentID, repositories.EquipmentPatch{PartIDs: &parts})
	return err
}

// detachChild removes childID from parentID's partIds. A missing parent is
// reported as found=false, not as an error.
func (l links) detachChild(ctx context.Context, parentID, childID string) (found bool, err error) {
	parent, err := l.store.Find(ctx, parentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !parent.HasPart(childID) {
		return true, nil
	}
	parts := without(parent.PartIDs, childID)
	_, err = l.store.UpdateFields(ctx, parentID, repositories.EquipmentPatch{PartIDs: &parts})
	return true, err
}

func (l links) setParent(ctx context.Context, childID string, parent null.String) error {
	_, err := l.store.UpdateFields(ctx, childID, repositories.EquipmentPatch{ParentID: &parent})
	return err
}

func without(ids []string, drop ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// normalizeIDs trims ids, drops blanks and duplicates, keeps first-seen order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameParent(a, b null.String) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.String == b.String
}
