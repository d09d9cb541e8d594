package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/revenant-13/maintenance-app/internal/dto"
	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	badgerstore "github.com/revenant-13/maintenance-app/internal/repositories/badgerdb"
	dbconn "github.com/revenant-13/maintenance-app/pkg/database/badgerdb"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string]string{}} }

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	_, err := c.Get(context.Background(), key)
	return err == nil
}

type testDeps struct {
	tx        repositories.TxManagerInterface
	bus       *eventbus.Bus
	cache     *memoryCache
	equipment *EquipmentService
	inventory *InventoryService
	tasks     *MaintenanceTaskService
	dashboard *DashboardService
	reports   ReportServiceInterface
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	db, err := dbconn.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	tx := badgerstore.NewTxManager(db, repositories.RetryPolicy{MaxRetries: 20, Base: time.Millisecond}).
		WithClock(func() time.Time { return testNow })
	bus := eventbus.New(logger)
	t.Cleanup(bus.Wait)
	cache := newMemoryCache()
	base := NewBaseService(cache, time.Minute, logger)

	return &testDeps{
		tx:        tx,
		bus:       bus,
		cache:     cache,
		equipment: NewEquipmentService(base, hierarchy.NewEngine(tx), bus, logger),
		inventory: NewInventoryService(tx, bus, logger),
		tasks:     NewMaintenanceTaskService(tx, bus, logger).WithClock(func() time.Time { return testNow }),
		dashboard: NewDashboardService(base, tx, logger).WithClock(func() time.Time { return testNow }),
		reports:   NewReportService(tx, logger),
	}
}

func updatePayload(t *testing.T, body string) dto.UpdateEquipmentDTO {
	t.Helper()
	var payload dto.UpdateEquipmentDTO
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func TestEquipmentService_CreateUpdateDelete(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	line, err := d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "line", Name: "Line 1"})
	require.NoError(t, err)
	assert.Equal(t, "line", line.ID)

	pump, err := d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{Name: "Pump", ParentID: null.StringFrom("line")})
	require.NoError(t, err)
	assert.Contains(t, pump.ID, hierarchy.EquipmentIDPrefix)

	got, err := d.equipment.FindEquipment(ctx, "line")
	require.NoError(t, err)
	assert.Equal(t, []string{pump.ID}, got.PartIDs)

	t.Run("отсутствующий parentId не трогает родителя", func(t *testing.T) {
		updated, err := d.equipment.UpdateEquipment(ctx, pump.ID, updatePayload(t, `{"name":"Main pump"}`))
		require.NoError(t, err)
		assert.Equal(t, "Main pump", updated.Name)
		assert.Equal(t, null.StringFrom("line"), updated.ParentID)
	})

	t.Run("parentId null делает корнем", func(t *testing.T) {
		updated, err := d.equipment.UpdateEquipment(ctx, pump.ID, updatePayload(t, `{"parentId":null}`))
		require.NoError(t, err)
		assert.False(t, updated.ParentID.Valid)

		line, err := d.equipment.FindEquipment(ctx, "line")
		require.NoError(t, err)
		assert.Empty(t, line.PartIDs)
	})

	t.Run("partIds заменяет список частей", func(t *testing.T) {
		updated, err := d.equipment.UpdateEquipment(ctx, "line", updatePayload(t, `{"partIds":["`+pump.ID+`"]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{pump.ID}, updated.PartIDs)

		updated, err = d.equipment.UpdateEquipment(ctx, "line", updatePayload(t, `{"partIds":[]}`))
		require.NoError(t, err)
		assert.Empty(t, updated.PartIDs)

		orphan, err := d.equipment.FindEquipment(ctx, pump.ID)
		require.NoError(t, err)
		assert.False(t, orphan.ParentID.Valid)
	})

	t.Run("цикл", func(t *testing.T) {
		_, err := d.equipment.UpdateEquipment(ctx, "line", updatePayload(t, `{"parentId":"line"}`))
		assert.True(t, errors.Is(err, apperrors.ErrCycle))
	})

	_, err = d.equipment.UpdateEquipment(ctx, pump.ID, updatePayload(t, `{"parentId":"line"}`))
	require.NoError(t, err)

	deleted, err := d.equipment.DeleteEquipment(ctx, "line")
	require.NoError(t, err)
	assert.Equal(t, []string{pump.ID}, deleted.DetachedChildren)

	_, err = d.equipment.DeleteEquipment(ctx, "line")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestEquipmentService_ListCacheInvalidatedOnWrite(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	_, err := d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "a", Name: "A"})
	require.NoError(t, err)

	list, err := d.equipment.GetEquipments(ctx, repositories.EquipmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, d.cache.has(CacheKeyEquipmentList))

	_, err = d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "b", Name: "B"})
	require.NoError(t, err)
	assert.False(t, d.cache.has(CacheKeyEquipmentList))

	list, err = d.equipment.GetEquipments(ctx, repositories.EquipmentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	roots, err := d.equipment.GetEquipments(ctx, repositories.EquipmentFilter{RootsOnly: true, IDs: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "b", roots[0].ID)
}

func TestEquipmentService_PublishesEvents(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	record := func(_ context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Name())
		return nil
	}
	d.bus.Subscribe(events.EquipmentCreated, record)
	d.bus.Subscribe(events.EquipmentDeleted, record)

	_, err := d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "a", Name: "A"})
	require.NoError(t, err)
	d.bus.Wait()
	_, err = d.equipment.DeleteEquipment(ctx, "a")
	require.NoError(t, err)
	d.bus.Wait()

	_, err = d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "b", Name: " "})
	require.Error(t, err)
	d.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{events.EquipmentCreated, events.EquipmentDeleted}, seen)
}

func TestInventoryService_DeleteRejectedWhileReferenced(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	item, err := d.inventory.CreateInventory(ctx, dto.CreateInventoryDTO{Name: "Bearing 6204", Stock: 4})
	require.NoError(t, err)
	assert.Contains(t, item.ID, InventoryIDPrefix)

	_, err = d.inventory.CreateInventory(ctx, dto.CreateInventoryDTO{Name: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "motor", Name: "Motor", InventoryPartIDs: []string{item.ID}})
	require.NoError(t, err)

	err = d.inventory.DeleteInventory(ctx, item.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "motor")

	_, err = d.equipment.UpdateEquipment(ctx, "motor", updatePayload(t, `{"inventoryPartIds":[]}`))
	require.NoError(t, err)
	require.NoError(t, d.inventory.DeleteInventory(ctx, item.ID))

	_, err = d.inventory.FindInventory(ctx, item.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.True(t, errors.Is(d.inventory.DeleteInventory(ctx, item.ID), apperrors.ErrNotFound))
}

func TestInventoryService_Update(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	_, err := d.inventory.CreateInventory(ctx, dto.CreateInventoryDTO{ID: "inv-1", Name: "Belt", Stock: 1, Category: null.StringFrom("belts")})
	require.NoError(t, err)

	var payload dto.UpdateInventoryDTO
	require.NoError(t, json.Unmarshal([]byte(`{"stock":0,"category":null}`), &payload))
	updated, err := d.inventory.UpdateInventory(ctx, "inv-1", payload)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.True(t, updated.OutOfStock())
	assert.False(t, updated.Category.Valid)
	assert.Equal(t, "Belt", updated.Name)

	list, err := d.inventory.GetInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMaintenanceTaskService(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	_, err := d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "press", Name: "Press"})
	require.NoError(t, err)

	_, err = d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "ghost", Type: "PM", Schedule: "2026-05-01"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "press", Type: "Repair", Schedule: "2026-05-01"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "press", Type: "PM", Schedule: "May 1"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	late, err := d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "press", Type: "PM", Schedule: "2026-05-01"})
	require.NoError(t, err)
	assert.True(t, late.Overdue)
	assert.Contains(t, late.ID, TaskIDPrefix)

	upcoming, err := d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{
		EquipmentID: "press",
		Type:        "Calibration",
		Schedule:    "2026-06-01T08:00:00Z",
		Description: null.StringFrom("annual"),
	})
	require.NoError(t, err)
	assert.False(t, upcoming.Overdue)

	overdue := true
	list, err := d.tasks.GetTasks(ctx, TaskListFilter{Overdue: &overdue})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)

	var payload dto.UpdateMaintenanceTaskDTO
	require.NoError(t, json.Unmarshal([]byte(`{"completed":true}`), &payload))
	done, err := d.tasks.UpdateTask(ctx, late.ID, payload)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.False(t, done.Overdue)
	assert.Equal(t, "PM", done.Type)

	completed := true
	list, err = d.tasks.GetTasks(ctx, TaskListFilter{EquipmentID: "press", Completed: &completed})
	require.NoError(t, err)
	require.Len(t, list, 1)

	payload = dto.UpdateMaintenanceTaskDTO{}
	require.NoError(t, json.Unmarshal([]byte(`{"equipmentId":"ghost"}`), &payload))
	_, err = d.tasks.UpdateTask(ctx, upcoming.ID, payload)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	deleted, err := d.equipment.DeleteEquipment(ctx, "press")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted.RemovedTasks)

	list, err = d.tasks.GetTasks(ctx, TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, errors.Is(d.tasks.DeleteTask(ctx, upcoming.ID), apperrors.ErrNotFound))
}

func TestDashboardService(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	_, err := d.inventory.CreateInventory(ctx, dto.CreateInventoryDTO{ID: "inv-empty", Name: "Seal", Stock: 0})
	require.NoError(t, err)
	_, err = d.inventory.CreateInventory(ctx, dto.CreateInventoryDTO{ID: "inv-full", Name: "Belt", Stock: 5})
	require.NoError(t, err)
	_, err = d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "line", Name: "Line"})
	require.NoError(t, err)
	_, err = d.equipment.CreateEquipment(ctx, dto.CreateEquipmentDTO{ID: "motor", Name: "Motor", ParentID: null.StringFrom("line")})
	require.NoError(t, err)
	_, err = d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "motor", Type: "PM", Schedule: "2026-04-01"})
	require.NoError(t, err)
	_, err = d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "motor", Type: "Calibration", Schedule: "2026-04-01", Completed: true})
	require.NoError(t, err)

	stats, err := d.dashboard.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardTotalsDTO{
		Equipment:       2,
		Roots:           1,
		Inventory:       2,
		LowStock:        1,
		TasksCompleted:  1,
		TasksIncomplete: 1,
		TasksOverdue:    1,
	}, stats.Totals)
	assert.Equal(t, map[string]int{"PM": 1, "Calibration": 1}, stats.TasksByType)
	require.Len(t, stats.EquipmentTask, 1)
	assert.Equal(t, dto.EquipmentTaskStatDTO{EquipmentID: "motor", Name: "Motor", Total: 2, Completed: 1, Overdue: 1}, stats.EquipmentTask[0])
	assert.True(t, stats.Integrity)

	assert.True(t, d.cache.has(CacheKeyDashboard))
	cached, err := d.dashboard.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Totals, cached.Totals)
}

func TestReportService_TreeOrder(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	for _, in := range []dto.CreateEquipmentDTO{
		{ID: "z", Name: "Zeta line"},
		{ID: "a", Name: "Alpha line"},
		{ID: "m", Name: "Motor", ParentID: null.StringFrom("a")},
		{ID: "b", Name: "Bearing", ParentID: null.StringFrom("m")},
	} {
		_, err := d.equipment.CreateEquipment(ctx, in)
		require.NoError(t, err)
	}
	_, err := d.tasks.CreateTask(ctx, dto.CreateMaintenanceTaskDTO{EquipmentID: "b", Type: "PM", Schedule: "2026-04-01"})
	require.NoError(t, err)

	report, err := d.reports.GetEquipmentReport(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(report.Equipment))
	for _, row := range report.Equipment {
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []string{"a", "m", "b", "z"}, ids)
	assert.Equal(t, 2, report.Equipment[2].Depth)
	assert.Equal(t, 1, report.Equipment[2].OpenTasks)
	assert.Equal(t, "b", report.Equipment[1].PartIDs)

	require.Len(t, report.Tasks, 1)
	assert.Equal(t, "Bearing", report.Tasks[0].EquipmentName)
	assert.True(t, report.Tasks[0].Overdue)
	assert.Equal(t, "01.04.2026", report.Tasks[0].Schedule)
}
