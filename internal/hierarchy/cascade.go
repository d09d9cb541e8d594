package hierarchy

import (
	"context"
	"errors"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/aarondl/null/v8"
)

// CascadeResult lists the secondary writes a delete performed.
type CascadeResult struct {
	ID               string   `json:"id"`
	DetachedChildren []string `json:"detachedChildren"`
	UnlinkedParent   string   `json:"unlinkedParent,omitempty"`
	RemovedTasks     int      `json:"removedTasks"`
	DanglingIDs      []string `json:"danglingIds,omitempty"`
}

type resolver struct {
	uow   repositories.UnitOfWork
	links links
}

func newResolver(uow repositories.UnitOfWork) *resolver {
	return &resolver{uow: uow, links: links{store: uow.Equipment()}}
}

// delete removes id together with its links and maintenance tasks. Children
// become roots. References to records that no longer exist are collected in
// DanglingIDs; they do not stop the remaining steps.
func (r *resolver) delete(ctx context.Context, id string) (*CascadeResult, error) {
	store := r.uow.Equipment()
	target, err := store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &CascadeResult{ID: id, DetachedChildren: []string{}}

	for _, childID := range target.PartIDs {
		child, err := store.Find(ctx, childID)
		if errors.Is(err, apperrors.ErrNotFound) {
			result.DanglingIDs = append(result.DanglingIDs, childID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if child.ParentID.Valid && child.ParentID.String == id {
			if err := r.links.setParent(ctx, childID, null.String{}); err != nil {
				return nil, err
			}
			result.DetachedChildren = append(result.DetachedChildren, childID)
		}
	}

	if target.ParentID.Valid {
		found, err := r.links.detachChild(ctx, target.ParentID.String, id)
		if err != nil {
			return nil, err
		}
		if found {
			result.UnlinkedParent = target.ParentID.String
		} else {
			result.DanglingIDs = append(result.DanglingIDs, target.ParentID.String)
		}
	}

	removed, err := r.uow.Tasks().DeleteByEquipmentID(ctx, id)
	if err != nil {
		return nil, err
	}
	result.RemovedTasks = removed

	if _, err := store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return result, nil
}
