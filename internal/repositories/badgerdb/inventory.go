package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/dgraph-io/badger/v4"
)

var _ repositories.InventoryStore = (*inventoryStore)(nil)

type inventoryStore struct {
	txn *badger.Txn
	now func() time.Time
}

func (s *inventoryStore) Find(ctx context.Context, id string) (*entities.Inventory, error) {
	var item entities.Inventory
	if err := getJSON(s.txn, docKey(inventoryCollection, id), &item); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("inventory", id)
		}
		return nil, err
	}
	return &item, nil
}

func (s *inventoryStore) FindMany(ctx context.Context, ids []string) ([]entities.Inventory, error) {
	result := make([]entities.Inventory, 0, len(ids))

	if len(ids) > 0 {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			var item entities.Inventory
			err := getJSON(s.txn, docKey(inventoryCollection, id), &item)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result = append(result, item)
		}
		return result, nil
	}

	err := scanValues(s.txn, collectionPrefix(inventoryCollection), func(val []byte) error {
		var item entities.Inventory
		if err := json.Unmarshal(val, &item); err != nil {
			return err
		}
		result = append(result, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *inventoryStore) Insert(ctx context.Context, item entities.Inventory) (*entities.Inventory, error) {
	key := docKey(inventoryCollection, item.ID)
	found, err := exists(s.txn, key)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperrors.NewConflictError("inventory %q already exists", item.ID)
	}

	item.CreatedAt = nil
	item.Touch(s.now())
	if err := putJSON(s.txn, key, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *inventoryStore) UpdateFields(ctx context.Context, id string, patch repositories.InventoryPatch) (*entities.Inventory, error) {
	current, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	current.Touch(s.now())
	if err := putJSON(s.txn, docKey(inventoryCollection, id), current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *inventoryStore) Delete(ctx context.Context, id string) (bool, error) {
	key := docKey(inventoryCollection, id)
	found, err := exists(s.txn, key)
	if err != nil || !found {
		return false, err
	}
	if err := watchGuard(s.txn, guardKey(inventoryCollection, id)); err != nil {
		return false, err
	}
	if err := deleteKey(s.txn, key); err != nil {
		return false, err
	}
	return true, nil
}
