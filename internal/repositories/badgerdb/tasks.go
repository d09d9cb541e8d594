package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/dgraph-io/badger/v4"
)

var _ repositories.MaintenanceTaskStore = (*taskStore)(nil)

// taskStore keeps an index task_by_equipment/<equipmentId>/<taskId> next to the
// documents so cascades do not need a full scan.
type taskStore struct {
	txn *badger.Txn
	now func() time.Time
}

func (s *taskStore) Find(ctx context.Context, id string) (*entities.MaintenanceTask, error) {
	var t entities.MaintenanceTask
	if err := getJSON(s.txn, docKey(taskCollection, id), &t); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("maintenance task", id)
		}
		return nil, err
	}
	return &t, nil
}

func (s *taskStore) FindMany(ctx context.Context, filter repositories.TaskFilter) ([]entities.MaintenanceTask, error) {
	result := make([]entities.MaintenanceTask, 0)

	if filter.EquipmentID != "" {
		for _, taskID := range scanKeySuffixes(s.txn, taskIndexPrefix(filter.EquipmentID)) {
			var t entities.MaintenanceTask
			err := getJSON(s.txn, docKey(taskCollection, taskID), &t)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if filter.Match(t) {
				result = append(result, t)
			}
		}
	} else {
		err := scanValues(s.txn, collectionPrefix(taskCollection), func(val []byte) error {
			var t entities.MaintenanceTask
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			if filter.Match(t) {
				result = append(result, t)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Schedule.Before(result[j].Schedule) })
	return result, nil
}

func (s *taskStore) Insert(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error) {
	key := docKey(taskCollection, t.ID)
	found, err := exists(s.txn, key)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperrors.NewConflictError("maintenance task %q already exists", t.ID)
	}

	t.CreatedAt = nil
	t.Touch(s.now())
	if err := putJSON(s.txn, key, t); err != nil {
		return nil, err
	}
	if err := s.txn.Set(taskIndexKey(t.EquipmentID, t.ID), []byte{}); err != nil {
		return nil, apperrors.NewStoreError("set", err)
	}
	if err := touchGuard(s.txn, guardKey(equipmentCollection, t.EquipmentID)); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *taskStore) Update(ctx context.Context, t entities.MaintenanceTask) (*entities.MaintenanceTask, error) {
	current, err := s.Find(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = current.CreatedAt
	t.Touch(s.now())
	if err := putJSON(s.txn, docKey(taskCollection, t.ID), t); err != nil {
		return nil, err
	}
	if current.EquipmentID != t.EquipmentID {
		if err := deleteKey(s.txn, taskIndexKey(current.EquipmentID, t.ID)); err != nil {
			return nil, err
		}
		if err := s.txn.Set(taskIndexKey(t.EquipmentID, t.ID), []byte{}); err != nil {
			return nil, apperrors.NewStoreError("set", err)
		}
		if err := touchGuard(s.txn, guardKey(equipmentCollection, t.EquipmentID)); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *taskStore) Delete(ctx context.Context, id string) (bool, error) {
	current, err := s.Find(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := deleteKey(s.txn, docKey(taskCollection, id)); err != nil {
		return false, err
	}
	if err := deleteKey(s.txn, taskIndexKey(current.EquipmentID, id)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *taskStore) DeleteByEquipmentID(ctx context.Context, equipmentID string) (int, error) {
	// задача, вставленная параллельно, пишет этот ключ: коммит удаления упадёт с ErrConflict
	if err := watchGuard(s.txn, guardKey(equipmentCollection, equipmentID)); err != nil {
		return 0, err
	}
	// ключи собираются до удаления: итератор и Delete в одной txn не смешиваем
	taskIDs := scanKeySuffixes(s.txn, taskIndexPrefix(equipmentID))

	removed := 0
	for _, taskID := range taskIDs {
		found, err := exists(s.txn, docKey(taskCollection, taskID))
		if err != nil {
			return removed, err
		}
		if found {
			if err := deleteKey(s.txn, docKey(taskCollection, taskID)); err != nil {
				return removed, err
			}
			removed++
		}
		if err := deleteKey(s.txn, taskIndexKey(equipmentID, taskID)); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
