package hierarchy

import (
	"context"
	"errors"
	"strings"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/aarondl/null/v8"
)

// CreateInput describes a new equipment record. ID is optional.
type CreateInput struct {
	ID           string
	Name         string
	ParentID     null.String
	ChildIDs     []string
	InventoryIDs []string
}

// UpdateInput is a partial update. A nil pointer or nil slice leaves the field
// as stored; ParentID pointing at an invalid null.String makes the record a root.
// PartIDs replaces the whole child set.
type UpdateInput struct {
	Name             *string
	ParentID         *null.String
	PartIDs          []string
	InventoryPartIDs []string
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.ParentID == nil && in.PartIDs == nil && in.InventoryPartIDs == nil
}

// normalize checks what can be checked without reading the store.
func (in *CreateInput) normalize() error {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.NewValidationError("name", "must not be blank")
	}
	if in.ParentID.Valid {
		in.ParentID.String = strings.TrimSpace(in.ParentID.String)
		if in.ParentID.String == "" {
			in.ParentID = null.String{}
		}
	}
	in.ChildIDs = normalizeIDs(in.ChildIDs)
	in.InventoryIDs = normalizeIDs(in.InventoryIDs)

	if in.ParentID.Valid && contains(in.ChildIDs, in.ParentID.String) {
		return apperrors.NewValidationError("childIds", "%q cannot be both parent and child", in.ParentID.String)
	}
	if in.ID != "" {
		if in.ParentID.Valid && in.ParentID.String == in.ID {
			return apperrors.NewCycleError(in.ID, in.ID)
		}
		if contains(in.ChildIDs, in.ID) {
			return apperrors.NewCycleError(in.ID, in.ID)
		}
	}
	return nil
}

func (in *UpdateInput) normalize(id string) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperrors.NewValidationError("name", "must not be blank")
		}
		in.Name = &name
	}
	if in.ParentID != nil && in.ParentID.Valid {
		parent := null.StringFrom(strings.TrimSpace(in.ParentID.String))
		if parent.String == "" {
			parent = null.String{}
		}
		in.ParentID = &parent
	}
	if in.PartIDs != nil {
		in.PartIDs = normalizeIDs(in.PartIDs)
	}
	if in.InventoryPartIDs != nil {
		in.InventoryPartIDs = normalizeIDs(in.InventoryPartIDs)
	}

	if in.ParentID != nil && in.ParentID.Valid && contains(in.PartIDs, in.ParentID.String) {
		return apperrors.NewValidationError("partIds", "%q cannot be both parent and child", in.ParentID.String)
	}
	if contains(in.PartIDs, id) {
		return apperrors.NewCycleError(id, id)
	}
	if in.ParentID != nil && in.ParentID.Valid && in.ParentID.String == id {
		return apperrors.NewCycleError(id, id)
	}
	return nil
}

// enforcer applies create and update inside one unit of work.
type enforcer struct {
	uow      repositories.UnitOfWork
	detector *detector
	links    links
}

func newEnforcer(uow repositories.UnitOfWork) *enforcer {
	store := uow.Equipment()
	return &enforcer{uow: uow, detector: newDetector(store), links: links{store: store}}
}

// requireEquipment returns a NotFoundError listing every id that does not exist.
func (e *enforcer) requireEquipment(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := e.uow.Equipment().FindMany(ctx, repositories.EquipmentFilter{IDs: ids})
	if err != nil {
		return err
	}
	return missingError("equipment", ids, equipmentIDs(found))
}

func (e *enforcer) requireInventory(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := e.uow.Inventory().FindMany(ctx, ids)
	if err != nil {
		return err
	}
	have := make([]string, 0, len(found))
	for _, item := range found {
		have = append(have, item.ID)
	}
	return missingError("inventory", ids, have)
}

func (e *enforcer) create(ctx context.Context, in CreateInput) (*entities.Equipment, error) {
	store := e.uow.Equipment()

	if _, err := store.Find(ctx, in.ID); err == nil {
		return nil, apperrors.NewValidationError("id", "equipment %q already exists", in.ID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	refs := append([]string{}, in.ChildIDs...)
	if in.ParentID.Valid {
		refs = append([]string{in.ParentID.String}, refs...)
	}
	if err := e.requireEquipment(ctx, refs...); err != nil {
		return nil, err
	}
	if err := e.requireInventory(ctx, in.InventoryIDs); err != nil {
		return nil, err
	}

	// Ребёнок не может быть предком будущего родителя.
	if in.ParentID.Valid {
		for _, childID := range in.ChildIDs {
			cycle, err := e.detector.wouldCreateCycle(ctx, in.ParentID.String, childID)
			if err != nil {
				return nil, err
			}
			if cycle {
				return nil, apperrors.NewCycleError(in.ID, childID)
			}
		}
	}

	if _, err := store.Insert(ctx, entities.Equipment{
		ID:               in.ID,
		Name:             in.Name,
		ParentID:         in.ParentID,
		PartIDs:          in.ChildIDs,
		InventoryPartIDs: in.InventoryIDs,
	}); err != nil {
		return nil, err
	}

	for _, childID := range in.ChildIDs {
		if err := e.adopt(ctx, in.ID, childID); err != nil {
			return nil, err
		}
	}
	if in.ParentID.Valid {
		if err := e.links.attachChild(ctx, in.ParentID.String, in.ID); err != nil {
			return nil, err
		}
	}

	return store.Find(ctx, in.ID)
}

// adopt moves childID under parentID: detaches it from a different previous
// parent and rewrites its parentId. parentID's own partIds is not touched.
func (e *enforcer) adopt(ctx context.Context, parentID, childID string) error {
	child, err := e.uow.Equipment().Find(ctx, childID)
	if err != nil {
		return err
	}
	if child.ParentID.Valid && child.ParentID.String != parentID {
		if _, err := e.links.detachChild(ctx, child.ParentID.String, childID); err != nil {
			return err
		}
	}
	return e.links.setParent(ctx, childID, null.StringFrom(parentID))
}

func (e *enforcer) update(ctx context.Context, id string, in UpdateInput) (*entities.Equipment, error) {
	store := e.uow.Equipment()

	current, err := store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.empty() {
		return current, nil
	}

	if in.PartIDs != nil {
		if err := e.removeChildren(ctx, current, in.PartIDs); err != nil {
			return nil, err
		}
	}
	if in.ParentID != nil {
		if err := e.reparent(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}
	if in.PartIDs != nil {
		if err := e.addChildren(ctx, id, in.PartIDs); err != nil {
			return nil, err
		}
	}

	var patch repositories.EquipmentPatch
	if in.Name != nil {
		patch.Name = in.Name
	}
	if in.InventoryPartIDs != nil {
		if err := e.requireInventory(ctx, in.InventoryPartIDs); err != nil {
			return nil, err
		}
		inventory := in.InventoryPartIDs
		patch.InventoryPartIDs = &inventory
	}
	if !patch.Empty() {
		if _, err := store.UpdateFields(ctx, id, patch); err != nil {
			return nil, err
		}
	}

	return store.Find(ctx, id)
}

// removeChildren drops every current child that is not in desired and clears
// its parentId when it still points here.
func (e *enforcer) removeChildren(ctx context.Context, current *entities.Equipment, desired []string) error {
	var removed []string
	for _, childID := range current.PartIDs {
		if !contains(desired, childID) {
			removed = append(removed, childID)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	store := e.uow.Equipment()
	for _, childID := range removed {
		child, err := store.Find(ctx, childID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if child.ParentID.Valid && child.ParentID.String == current.ID {
			if err := e.links.setParent(ctx, childID, null.String{}); err != nil {
				return err
			}
		}
	}

	kept := without(current.PartIDs, removed...)
	_, err := store.UpdateFields(ctx, current.ID, repositories.EquipmentPatch{PartIDs: &kept})
	return err
}

func (e *enforcer) reparent(ctx context.Context, id string, parent null.String) error {
	store := e.uow.Equipment()
	target, err := store.Find(ctx, id)
	if err != nil {
		return err
	}

	if sameParent(target.ParentID, parent) {
		if parent.Valid {
			// связь могла быть односторонней
			if err := e.requireEquipment(ctx, parent.String); err != nil {
				return err
			}
			return e.links.attachChild(ctx, parent.String, id)
		}
		return nil
	}

	if parent.Valid {
		if err := e.requireEquipment(ctx, parent.String); err != nil {
			return err
		}
		cycle, err := e.detector.wouldCreateCycle(ctx, parent.String, id)
		if err != nil {
			return err
		}
		if cycle {
			return apperrors.NewCycleError(parent.String, id)
		}
	}

	if target.ParentID.Valid {
		if _, err := e.links.detachChild(ctx, target.ParentID.String, id); err != nil {
			return err
		}
	}
	if err := e.links.setParent(ctx, id, parent); err != nil {
		return err
	}
	if parent.Valid {
		return e.links.attachChild(ctx, parent.String, id)
	}
	return nil
}

func (e *enforcer) addChildren(ctx context.Context, id string, desired []string) error {
	target, err := e.uow.Equipment().Find(ctx, id)
	if err != nil {
		return err
	}

	var added []string
	for _, childID := range desired {
		if !target.HasPart(childID) {
			added = append(added, childID)
		}
	}
	if err := e.requireEquipment(ctx, added...); err != nil {
		return err
	}

	for _, childID := range added {
		cycle, err := e.detector.wouldCreateCycle(ctx, id, childID)
		if err != nil {
			return err
		}
		if cycle {
			return apperrors.NewCycleError(id, childID)
		}
		if err := e.adopt(ctx, id, childID); err != nil {
			return err
		}
		if err := e.links.attachChild(ctx, id, childID); err != nil {
			return err
		}
	}

	// Дети, которые уже были в partIds, но смотрят на другого родителя.
	for _, childID := range desired {
		if contains(added, childID) {
			continue
		}
		child, err := e.uow.Equipment().Find(ctx, childID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !child.ParentID.Valid || child.ParentID.String != id {
			cycle, err := e.detector.wouldCreateCycle(ctx, id, childID)
			if err != nil {
				return err
			}
			if cycle {
				return apperrors.NewCycleError(id, childID)
			}
			if err := e.adopt(ctx, id, childID); err != nil {
				return err
			}
		}
	}
	return nil
}

func missingError(entity string, wanted, have []string) error {
	var missing []string
	for _, id := range wanted {
		if !contains(have, id) && !contains(missing, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewNotFoundError(entity, missing...)
}

func equipmentIDs(list []entities.Equipment) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}
