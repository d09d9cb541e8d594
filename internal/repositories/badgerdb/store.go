// Package badgerdb keeps equipment, inventory and maintenance tasks as JSON
// documents in an embedded Badger database.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/dgraph-io/badger/v4"
)

const (
	backendName = "badger"
	sep         = "\x00"

	equipmentCollection = "equipment"
	inventoryCollection = "inventory"
	taskCollection      = "task"
	taskByEquipment     = "task_by_equipment"
	refGuard            = "ref_guard"
)

func docKey(collection, id string) []byte { return []byte(collection + sep + id) }

func collectionPrefix(collection string) []byte { return []byte(collection + sep) }

func taskIndexKey(equipmentID, taskID string) []byte {
	return []byte(taskByEquipment + sep + equipmentID + sep + taskID)
}

func taskIndexPrefix(equipmentID string) []byte {
	return []byte(taskByEquipment + sep + equipmentID + sep)
}

// Badger ловит конфликт только по ключам, которые транзакция прочитала, а
// сканирование префикса не видит ключей, вставленных параллельно. Поэтому
// каждая запись ссылки (задача -> оборудование, оборудование -> склад)
// пишет ключ-страж цели, а удаление цели его читает.
func guardKey(kind, id string) []byte {
	return []byte(refGuard + sep + kind + sep + id)
}

func touchGuard(txn *badger.Txn, key []byte) error {
	if err := txn.Set(key, []byte{}); err != nil {
		return apperrors.NewStoreError("set", err)
	}
	return nil
}

// watchGuard читает ключ-страж и удаляет его: цель исчезает вместе со ссылками.
func watchGuard(txn *badger.Txn, key []byte) error {
	if _, err := txn.Get(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewStoreError("get", err)
	}
	return deleteKey(txn, key)
}

var _ repositories.TxManagerInterface = (*TxManager)(nil)

type TxManager struct {
	db     *badger.DB
	policy repositories.RetryPolicy
	now    func() time.Time
}

func NewTxManager(db *badger.DB, policy repositories.RetryPolicy) *TxManager {
	return &TxManager{db: db, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the timestamp source; used by tests.
func (m *TxManager) WithClock(now func() time.Time) *TxManager {
	m.now = now
	return m
}

func isConflict(err error) bool { return errors.Is(err, badger.ErrConflict) }

// RunInTransaction выполняет fn в одной транзакции Badger. Badger проверяет
// конфликты по прочитанным ключам при коммите; при конфликте fn повторяется целиком.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	return repositories.RunWithRetry(ctx, backendName, m.policy, isConflict, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		txn := m.db.NewTransaction(true)
		defer txn.Discard()

		if err := fn(&unitOfWork{txn: txn, now: m.now}); err != nil {
			return err
		}
		if err := txn.Commit(); err != nil {
			return apperrors.NewStoreError("commit", err)
		}
		return nil
	})
}

func (m *TxManager) RunReadOnly(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := m.db.NewTransaction(false)
	defer txn.Discard()
	return fn(&unitOfWork{txn: txn, now: m.now})
}

type unitOfWork struct {
	txn *badger.Txn
	now func() time.Time
}

func (u *unitOfWork) Equipment() repositories.EquipmentStore {
	return &equipmentStore{txn: u.txn, now: u.now}
}

func (u *unitOfWork) Inventory() repositories.InventoryStore {
	return &inventoryStore{txn: u.txn, now: u.now}
}

func (u *unitOfWork) Tasks() repositories.MaintenanceTaskStore {
	return &taskStore{txn: u.txn, now: u.now}
}

func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return apperrors.NewStoreError("get", err)
	}
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, out) }); err != nil {
		return apperrors.NewStoreError("decode", err)
	}
	return nil
}

func putJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStoreError("encode", err)
	}
	if err := txn.Set(key, data); err != nil {
		return apperrors.NewStoreError("set", err)
	}
	return nil
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStoreError("get", err)
	}
	return true, nil
}

func deleteKey(txn *badger.Txn, key []byte) error {
	if err := txn.Delete(key); err != nil {
		return apperrors.NewStoreError("delete", err)
	}
	return nil
}

// scanValues calls fn with every value under prefix, in key order.
func scanValues(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return apperrors.NewStoreError("scan", err)
		}
	}
	return nil
}

// scanKeySuffixes returns the part of every key under prefix that follows it.
func scanKeySuffixes(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		out = append(out, string(key[len(prefix):]))
	}
	return out
}
