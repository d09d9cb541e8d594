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

var _ repositories.EquipmentStore = (*equipmentStore)(nil)

type equipmentStore struct {
	txn *badger.Txn
	now func() time.Time
}

func (s *equipmentStore) Find(ctx context.Context, id string) (*entities.Equipment, error) {
	var e entities.Equipment
	if err := getJSON(s.txn, docKey(equipmentCollection, id), &e); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("equipment", id)
		}
		return nil, err
	}
	e = e.Clone()
	return &e, nil
}

func (s *equipmentStore) FindMany(ctx context.Context, filter repositories.EquipmentFilter) ([]entities.Equipment, error) {
	result := make([]entities.Equipment, 0)

	// Точечный поиск по IDs дешевле полного скана.
	if len(filter.IDs) > 0 {
		seen := make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			var e entities.Equipment
			err := getJSON(s.txn, docKey(equipmentCollection, id), &e)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if filter.Match(e) {
				result = append(result, e.Clone())
			}
		}
		return result, nil
	}

	err := scanValues(s.txn, collectionPrefix(equipmentCollection), func(val []byte) error {
		var e entities.Equipment
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if filter.Match(e) {
			result = append(result, e.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *equipmentStore) Insert(ctx context.Context, e entities.Equipment) (*entities.Equipment, error) {
	key := docKey(equipmentCollection, e.ID)
	found, err := exists(s.txn, key)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperrors.NewConflictError("equipment %q already exists", e.ID)
	}

	e = e.Clone()
	e.CreatedAt = nil
	e.Touch(s.now())
	if err := putJSON(s.txn, key, e); err != nil {
		return nil, err
	}
	if err := s.touchInventory(e.InventoryPartIDs); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *equipmentStore) UpdateFields(ctx context.Context, id string, patch repositories.EquipmentPatch) (*entities.Equipment, error) {
	current, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	patch.Apply(current)
	current.Touch(s.now())
	if err := putJSON(s.txn, docKey(equipmentCollection, id), current); err != nil {
		return nil, err
	}
	if patch.InventoryPartIDs != nil {
		if err := s.touchInventory(*patch.InventoryPartIDs); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// touchInventory связывает запись со складом: параллельное удаление позиции
// получит конфликт и при повторе увидит ссылку.
func (s *equipmentStore) touchInventory(ids []string) error {
	for _, id := range ids {
		if err := touchGuard(s.txn, guardKey(inventoryCollection, id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *equipmentStore) Delete(ctx context.Context, id string) (bool, error) {
	key := docKey(equipmentCollection, id)
	found, err := exists(s.txn, key)
	if err != nil || !found {
		return false, err
	}
	if err := deleteKey(s.txn, key); err != nil {
		return false, err
	}
	return true, nil
}
