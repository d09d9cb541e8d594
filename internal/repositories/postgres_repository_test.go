package repositories

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/pkg/database/postgresql"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

// TestMain подключается к тестовой БД, если задан TEST_DATABASE_URL, и применяет миграции.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		var err error
		testPool, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			log.Fatalf("Не удалось подключиться к тестовой БД: %v", err)
		}
		if err := postgresql.Migrate(context.Background(), testPool); err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func requirePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE maintenance_tasks, equipment, inventory`)
	require.NoError(t, err, "Не удалось очистить таблицы")
	return testPool
}

func TestEquipmentRepository_Integration_CRUD(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	m := NewTxManager(pool, DefaultRetryPolicy())

	require.NoError(t, m.RunInTransaction(ctx, func(uow UnitOfWork) error {
		_, err := uow.Equipment().Insert(ctx, entities.Equipment{ID: "equip-root", Name: "Line", PartIDs: []string{"equip-x"}})
		if err != nil {
			return err
		}
		_, err = uow.Equipment().Insert(ctx, entities.Equipment{
			ID:               "equip-x",
			Name:             "Motor",
			ParentID:         null.StringFrom("equip-root"),
			InventoryPartIDs: []string{"inv-1"},
		})
		return err
	}))

	require.NoError(t, m.RunReadOnly(ctx, func(uow UnitOfWork) error {
		x, err := uow.Equipment().Find(ctx, "equip-x")
		require.NoError(t, err)
		assert.Equal(t, "equip-root", x.ParentID.String)
		assert.Equal(t, []string{}, x.PartIDs)
		assert.NotNil(t, x.CreatedAt)

		roots, err := uow.Equipment().FindMany(ctx, EquipmentFilter{RootsOnly: true})
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, "equip-root", roots[0].ID)

		users, err := uow.Equipment().FindMany(ctx, EquipmentFilter{InventoryID: "inv-1"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "equip-x", users[0].ID)
		return nil
	}))

	require.NoError(t, m.RunInTransaction(ctx, func(uow UnitOfWork) error {
		detached := null.String{}
		updated, err := uow.Equipment().UpdateFields(ctx, "equip-x", EquipmentPatch{ParentID: &detached})
		require.NoError(t, err)
		assert.True(t, updated.IsRoot())

		deleted, err := uow.Equipment().Delete(ctx, "equip-x")
		require.NoError(t, err)
		assert.True(t, deleted)
		return nil
	}))

	err := m.RunReadOnly(ctx, func(uow UnitOfWork) error {
		_, err := uow.Equipment().Find(ctx, "equip-x")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEquipmentRepository_Integration_DuplicateID(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	m := NewTxManager(pool, DefaultRetryPolicy())

	insert := func() error {
		return m.RunInTransaction(ctx, func(uow UnitOfWork) error {
			_, err := uow.Equipment().Insert(ctx, entities.Equipment{ID: "equip-dup", Name: "Dup"})
			return err
		})
	}
	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), apperrors.ErrConflict)
}

func TestMaintenanceTaskRepository_Integration_DeleteByEquipmentID(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	m := NewTxManager(pool, DefaultRetryPolicy())
	schedule := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, m.RunInTransaction(ctx, func(uow UnitOfWork) error {
		if _, err := uow.Equipment().Insert(ctx, entities.Equipment{ID: "equip-a", Name: "A"}); err != nil {
			return err
		}
		for _, id := range []string{"task-1", "task-2"} {
			if _, err := uow.Tasks().Insert(ctx, entities.MaintenanceTask{
				ID:          id,
				EquipmentID: "equip-a",
				Type:        entities.MaintenanceCalibration,
				Schedule:    schedule,
				Description: null.StringFrom("quarterly"),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, m.RunInTransaction(ctx, func(uow UnitOfWork) error {
		task, err := uow.Tasks().Find(ctx, "task-1")
		require.NoError(t, err)
		assert.Equal(t, entities.MaintenanceCalibration, task.Type)
		assert.True(t, task.Schedule.Equal(schedule))

		n, err := uow.Tasks().DeleteByEquipmentID(ctx, "equip-a")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return nil
	}))
}

func TestTxManager_Integration_ConcurrentAppends(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	m := NewTxManager(pool, RetryPolicy{MaxRetries: 20, Base: 2 * time.Millisecond})

	require.NoError(t, m.RunInTransaction(ctx, func(uow UnitOfWork) error {
		_, err := uow.Equipment().Insert(ctx, entities.Equipment{ID: "equip-hub", Name: "Hub"})
		return err
	}))

	const writers = 6
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- m.RunInTransaction(ctx, func(uow UnitOfWork) error {
				hub, err := uow.Equipment().Find(ctx, "equip-hub")
				if err != nil {
					return err
				}
				parts := append(hub.PartIDs, string(rune('a'+n)))
				_, err = uow.Equipment().UpdateFields(ctx, "equip-hub", EquipmentPatch{PartIDs: &parts})
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, m.RunReadOnly(ctx, func(uow UnitOfWork) error {
		hub, err := uow.Equipment().Find(ctx, "equip-hub")
		require.NoError(t, err)
		assert.Len(t, hub.PartIDs, writers)
		return nil
	}))
}
