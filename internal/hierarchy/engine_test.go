package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	badgerstore "github.com/revenant-13/maintenance-app/internal/repositories/badgerdb"
	dbconn "github.com/revenant-13/maintenance-app/pkg/database/badgerdb"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, repositories.TxManagerInterface) {
	t.Helper()
	db, err := dbconn.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tx := badgerstore.NewTxManager(db, repositories.RetryPolicy{MaxRetries: 100, Base: time.Millisecond}).
		WithClock(func() time.Time { return fixedNow })
	return NewEngine(tx), tx
}

func mustCreate(t *testing.T, eng *Engine, id, name, parent string, children ...string) *entities.Equipment {
	t.Helper()
	in := CreateInput{ID: id, Name: name, ChildIDs: children}
	if parent != "" {
		in.ParentID = null.StringFrom(parent)
	}
	created, err := eng.CreateEquipment(context.Background(), in)
	require.NoError(t, err, "create %s", id)
	return created
}

func mustGet(t *testing.T, eng *Engine, id string) *entities.Equipment {
	t.Helper()
	e, err := eng.GetEquipment(context.Background(), id)
	require.NoError(t, err, "get %s", id)
	return e
}

func snapshot(t *testing.T, tx repositories.TxManagerInterface) map[string]entities.Equipment {
	t.Helper()
	out := map[string]entities.Equipment{}
	require.NoError(t, tx.RunReadOnly(context.Background(), func(uow repositories.UnitOfWork) error {
		list, err := uow.Equipment().FindMany(context.Background(), repositories.EquipmentFilter{})
		for _, e := range list {
			out[e.ID] = e
		}
		return err
	}))
	return out
}

func assertConsistent(t *testing.T, tx repositories.TxManagerInterface) {
	t.Helper()
	list := make([]entities.Equipment, 0)
	for _, e := range snapshot(t, tx) {
		list = append(list, e)
	}
	report := CheckIntegrity(list, nil)
	assert.True(t, report.OK(), "нарушения целостности: %+v", report.Violations)
}

// buildChain creates A -> B -> C.
func buildChain(t *testing.T, eng *Engine) {
	t.Helper()
	mustCreate(t, eng, "A", "Line", "")
	mustCreate(t, eng, "B", "Press", "A")
	mustCreate(t, eng, "C", "Motor", "B")
}

func TestCreateEquipment_RootWithGeneratedID(t *testing.T) {
	eng, tx := newTestEngine(t)

	created, err := eng.CreateEquipment(context.Background(), CreateInput{Name: "  Compressor  "})
	require.NoError(t, err)
	assert.Contains(t, created.ID, EquipmentIDPrefix)
	assert.Equal(t, "Compressor", created.Name)
	assert.True(t, created.IsRoot())
	assert.Empty(t, created.PartIDs)
	assert.Len(t, snapshot(t, tx), 1)
}

func TestCreateEquipment_Validation(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "P", "Parent", "")
	before := snapshot(t, tx)

	_, err := eng.CreateEquipment(context.Background(), CreateInput{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = eng.CreateEquipment(context.Background(), CreateInput{
		Name:     "Dual",
		ParentID: null.StringFrom("P"),
		ChildIDs: []string{"P"},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = eng.CreateEquipment(context.Background(), CreateInput{ID: "P", Name: "Again"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = eng.CreateEquipment(context.Background(), CreateInput{ID: "S", Name: "Self", ChildIDs: []string{"S"}})
	assert.ErrorIs(t, err, apperrors.ErrCycle)

	assert.Equal(t, before, snapshot(t, tx))
}

func TestCreateEquipment_MissingReferences(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "P", "Parent", "")

	_, err := eng.CreateEquipment(context.Background(), CreateInput{Name: "X", ParentID: null.StringFrom("ghost")})
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "equipment", nf.Entity)
	assert.Equal(t, []string{"ghost"}, nf.IDs)

	_, err = eng.CreateEquipment(context.Background(), CreateInput{Name: "X", ChildIDs: []string{"P", "nope"}})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"nope"}, nf.IDs)

	_, err = eng.CreateEquipment(context.Background(), CreateInput{Name: "X", InventoryIDs: []string{"inv-missing"}})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "inventory", nf.Entity)

	assert.Len(t, snapshot(t, tx), 1)
	assert.Empty(t, mustGet(t, eng, "P").PartIDs)
}

func TestCreateEquipment_AttachesToParent(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "P", "Parent", "")

	child := mustCreate(t, eng, "K", "Kid", "P")
	assert.Equal(t, "P", child.ParentID.String)
	assert.Equal(t, []string{"K"}, mustGet(t, eng, "P").PartIDs)
	assertConsistent(t, tx)
}

func TestCreateEquipment_StealsChildFromPreviousParent(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)

	d := mustCreate(t, eng, "D", "Gearbox", "", "C")

	assert.Equal(t, []string{"C"}, d.PartIDs)
	assert.NotContains(t, mustGet(t, eng, "B").PartIDs, "C")
	assert.Equal(t, "D", mustGet(t, eng, "C").ParentID.String)
	assertConsistent(t, tx)
}

func TestCreateEquipment_ChildIsAncestorOfParent(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)
	before := snapshot(t, tx)

	// D под C с ребёнком A: A -> B -> C -> D -> A
	_, err := eng.CreateEquipment(context.Background(), CreateInput{
		ID:       "D",
		Name:     "Loop",
		ParentID: null.StringFrom("C"),
		ChildIDs: []string{"A"},
	})
	assert.ErrorIs(t, err, apperrors.ErrCycle)
	assert.Equal(t, before, snapshot(t, tx))
}

func TestCreateEquipment_WithInventory(t *testing.T) {
	eng, tx := newTestEngine(t)
	require.NoError(t, tx.RunInTransaction(context.Background(), func(uow repositories.UnitOfWork) error {
		_, err := uow.Inventory().Insert(context.Background(), entities.Inventory{ID: "inv-1", Name: "Belt", Stock: 2})
		return err
	}))

	created, err := eng.CreateEquipment(context.Background(), CreateInput{
		Name:         "Conveyor",
		InventoryIDs: []string{"inv-1", "inv-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1"}, created.InventoryPartIDs)
}

func TestUpdateEquipment_ReparentIntoDescendantFails(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)
	before := snapshot(t, tx)

	parent := null.StringFrom("C")
	_, err := eng.UpdateEquipment(context.Background(), "A", UpdateInput{ParentID: &parent})
	var cycle *apperrors.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "C", cycle.ParentID)
	assert.Equal(t, "A", cycle.ChildID)

	self := null.StringFrom("A")
	_, err = eng.UpdateEquipment(context.Background(), "A", UpdateInput{ParentID: &self})
	assert.ErrorIs(t, err, apperrors.ErrCycle)

	assert.Equal(t, before, snapshot(t, tx))
}

func TestUpdateEquipment_ChainScenario(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)

	root := null.String{}
	_, err := eng.UpdateEquipment(context.Background(), "A", UpdateInput{ParentID: &root})
	require.NoError(t, err)

	result, err := eng.DeleteEquipment(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, result.DetachedChildren)
	assert.Equal(t, "A", result.UnlinkedParent)

	c := mustGet(t, eng, "C")
	assert.True(t, c.IsRoot())
	assert.Empty(t, mustGet(t, eng, "A").PartIDs)

	_, err = eng.GetEquipment(context.Background(), "B")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assertConsistent(t, tx)
}

func TestUpdateEquipment_ReplacePartIDs(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "P", "Panel", "")
	mustCreate(t, eng, "X", "Fuse", "P")
	mustCreate(t, eng, "Y", "Relay", "P")
	mustCreate(t, eng, "Q", "Other panel", "")
	mustCreate(t, eng, "Z", "Switch", "Q")

	updated, err := eng.UpdateEquipment(context.Background(), "P", UpdateInput{PartIDs: []string{"Y", "Z"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Y", "Z"}, updated.PartIDs)

	assert.True(t, mustGet(t, eng, "X").IsRoot(), "removed child must be detached explicitly")
	assert.Equal(t, "P", mustGet(t, eng, "Z").ParentID.String)
	assert.Empty(t, mustGet(t, eng, "Q").PartIDs)
	assertConsistent(t, tx)

	updated, err = eng.UpdateEquipment(context.Background(), "P", UpdateInput{PartIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.PartIDs)
	assert.True(t, mustGet(t, eng, "Y").IsRoot())
	assertConsistent(t, tx)
}

func TestUpdateEquipment_AddingAncestorAsChildFails(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)
	before := snapshot(t, tx)

	_, err := eng.UpdateEquipment(context.Background(), "C", UpdateInput{PartIDs: []string{"A"}})
	assert.ErrorIs(t, err, apperrors.ErrCycle)

	_, err = eng.UpdateEquipment(context.Background(), "C", UpdateInput{PartIDs: []string{"C"}})
	assert.ErrorIs(t, err, apperrors.ErrCycle)

	_, err = eng.UpdateEquipment(context.Background(), "C", UpdateInput{PartIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, before, snapshot(t, tx))
}

func TestUpdateEquipment_DualRole(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "A", "A", "")
	mustCreate(t, eng, "B", "B", "")
	before := snapshot(t, tx)

	parent := null.StringFrom("B")
	_, err := eng.UpdateEquipment(context.Background(), "A", UpdateInput{ParentID: &parent, PartIDs: []string{"B"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, before, snapshot(t, tx))
}

func TestUpdateEquipment_JudgedOnFinalShape(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)

	// B отпускает C и сам уходит под C в одном запросе
	parent := null.StringFrom("C")
	updated, err := eng.UpdateEquipment(context.Background(), "B", UpdateInput{ParentID: &parent, PartIDs: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "C", updated.ParentID.String)
	assert.Empty(t, updated.PartIDs)

	assert.True(t, mustGet(t, eng, "C").IsRoot())
	assert.Equal(t, []string{"B"}, mustGet(t, eng, "C").PartIDs)
	assert.Empty(t, mustGet(t, eng, "A").PartIDs)
	assertConsistent(t, tx)
}

func TestUpdateEquipment_FieldsAndErrors(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustCreate(t, eng, "A", "Old name", "")

	name := "New name"
	updated, err := eng.UpdateEquipment(context.Background(), "A", UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)

	blank := " "
	_, err = eng.UpdateEquipment(context.Background(), "A", UpdateInput{Name: &blank})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = eng.UpdateEquipment(context.Background(), "missing", UpdateInput{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = eng.UpdateEquipment(context.Background(), "A", UpdateInput{InventoryPartIDs: []string{"inv-x"}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	unchanged, err := eng.UpdateEquipment(context.Background(), "A", UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "New name", unchanged.Name)
}

func TestUpdateEquipment_MoveBetweenParents(t *testing.T) {
	eng, tx := newTestEngine(t)
	mustCreate(t, eng, "P1", "Bay 1", "")
	mustCreate(t, eng, "P2", "Bay 2", "")
	mustCreate(t, eng, "X", "Robot", "P1")

	parent := null.StringFrom("P2")
	moved, err := eng.UpdateEquipment(context.Background(), "X", UpdateInput{ParentID: &parent})
	require.NoError(t, err)
	assert.Equal(t, "P2", moved.ParentID.String)
	assert.Empty(t, mustGet(t, eng, "P1").PartIDs)
	assert.Equal(t, []string{"X"}, mustGet(t, eng, "P2").PartIDs)
	assertConsistent(t, tx)
}

func TestDeleteEquipment_CascadesTasks(t *testing.T) {
	eng, tx := newTestEngine(t)
	buildChain(t, eng)
	ctx := context.Background()

	require.NoError(t, tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		for i, eq := range []string{"B", "B", "C"} {
			if _, err := uow.Tasks().Insert(ctx, entities.MaintenanceTask{
				ID:          fmt.Sprintf("task-%d", i),
				EquipmentID: eq,
				Type:        entities.MaintenancePM,
				Schedule:    fixedNow,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	result, err := eng.DeleteEquipment(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RemovedTasks)

	require.NoError(t, tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		forB, err := uow.Tasks().FindMany(ctx, repositories.TaskFilter{EquipmentID: "B"})
		require.NoError(t, err)
		assert.Empty(t, forB)

		forC, err := uow.Tasks().FindMany(ctx, repositories.TaskFilter{EquipmentID: "C"})
		require.NoError(t, err)
		assert.Len(t, forC, 1)
		return nil
	}))
	assert.True(t, mustGet(t, eng, "C").IsRoot())
	assertConsistent(t, tx)
}

func TestDeleteEquipment_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.DeleteEquipment(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteEquipment_DanglingReferencesStillCleanUp(t *testing.T) {
	eng, tx := newTestEngine(t)
	ctx := context.Background()

	// повреждённые данные записываются в обход движка
	require.NoError(t, tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Equipment().Insert(ctx, entities.Equipment{
			ID:       "X",
			Name:     "Broken",
			ParentID: null.StringFrom("gone-parent"),
			PartIDs:  []string{"gone-child", "K"},
		}); err != nil {
			return err
		}
		if _, err := uow.Equipment().Insert(ctx, entities.Equipment{ID: "K", Name: "Kid", ParentID: null.StringFrom("X")}); err != nil {
			return err
		}
		_, err := uow.Tasks().Insert(ctx, entities.MaintenanceTask{ID: "task-x", EquipmentID: "X", Type: entities.MaintenanceCalibration, Schedule: fixedNow})
		return err
	}))

	result, err := eng.DeleteEquipment(ctx, "X")
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ElementsMatch(t, []string{"gone-child", "gone-parent"}, nf.IDs)
	assert.NotEmpty(t, nf.Detail)

	require.NotNil(t, result)
	assert.Equal(t, 1, result.RemovedTasks)
	assert.Equal(t, []string{"K"}, result.DetachedChildren)

	_, err = eng.GetEquipment(ctx, "X")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.True(t, mustGet(t, eng, "K").IsRoot())
}

func TestDescendantsAndAncestors(t *testing.T) {
	eng, _ := newTestEngine(t)
	buildChain(t, eng)
	mustCreate(t, eng, "B2", "Press 2", "A")

	desc, err := eng.Descendants(context.Background(), "A")
	require.NoError(t, err)
	ids := equipmentIDs(desc)
	assert.ElementsMatch(t, []string{"B", "B2", "C"}, ids)
	assert.Equal(t, "C", ids[2], "BFS order puts grandchildren last")

	anc, err := eng.Ancestors(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, equipmentIDs(anc))

	_, err = eng.Descendants(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDetector_TerminatesOnCorruptCycle(t *testing.T) {
	_, tx := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		for _, e := range []entities.Equipment{
			{ID: "X", Name: "X", ParentID: null.StringFrom("Y"), PartIDs: []string{"Y", "ghost"}},
			{ID: "Y", Name: "Y", ParentID: null.StringFrom("X"), PartIDs: []string{"X"}},
		} {
			if _, err := uow.Equipment().Insert(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, tx.RunReadOnly(ctx, func(uow repositories.UnitOfWork) error {
		d := newDetector(uow.Equipment())

		desc, err := d.descendantsOf(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, []string{"Y"}, desc)

		anc, err := d.ancestorsOf(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, []string{"Y"}, anc)

		cycle, err := d.wouldCreateCycle(ctx, "Y", "X")
		require.NoError(t, err)
		assert.True(t, cycle)
		return nil
	}))
}

func TestConcurrentReparentOfSameChild(t *testing.T) {
	eng, tx := newTestEngine(t)
	const parents = 8
	for i := 0; i < parents; i++ {
		mustCreate(t, eng, fmt.Sprintf("P%d", i), fmt.Sprintf("Parent %d", i), "")
	}
	mustCreate(t, eng, "X", "Shared", "P0")

	var wg sync.WaitGroup
	errs := make(chan error, parents)
	for i := 0; i < parents; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			parent := null.StringFrom(fmt.Sprintf("P%d", n))
			_, err := eng.UpdateEquipment(context.Background(), "X", UpdateInput{ParentID: &parent})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	state := snapshot(t, tx)
	listing := 0
	for i := 0; i < parents; i++ {
		if state[fmt.Sprintf("P%d", i)].HasPart("X") {
			listing++
		}
	}
	assert.Equal(t, 1, listing, "exactly one parent may list the child")
	assert.True(t, state[state["X"].ParentID.String].HasPart("X"))
	assertConsistent(t, tx)
}

func TestConcurrentMutualReparentNeverCycles(t *testing.T) {
	for round := 0; round < 5; round++ {
		eng, tx := newTestEngine(t)
		mustCreate(t, eng, "A", "A", "")
		mustCreate(t, eng, "B", "B", "")

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i, pair := range [][2]string{{"A", "B"}, {"B", "A"}} {
			wg.Add(1)
			go func(i int, child, parent string) {
				defer wg.Done()
				p := null.StringFrom(parent)
				_, results[i] = eng.UpdateEquipment(context.Background(), child, UpdateInput{ParentID: &p})
			}(i, pair[0], pair[1])
		}
		wg.Wait()

		failures := 0
		for _, err := range results {
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrCycle)
				failures++
			}
		}
		assert.Equal(t, 1, failures, "ровно одна из встречных операций должна упасть")
		assertConsistent(t, tx)
	}
}

func TestRandomOperationsPreserveInvariants(t *testing.T) {
	eng, tx := newTestEngine(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	ids := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	pick := func() string { return ids[rng.Intn(len(ids))] }
	pickSome := func() []string {
		var out []string
		for _, id := range ids {
			if rng.Intn(5) == 0 {
				out = append(out, id)
			}
		}
		return out
	}
	maybeParent := func() null.String {
		if rng.Intn(3) == 0 {
			return null.String{}
		}
		return null.StringFrom(pick())
	}

	for step := 0; step < 400; step++ {
		var err error
		switch rng.Intn(4) {
		case 0:
			_, err = eng.CreateEquipment(ctx, CreateInput{ID: pick(), Name: "node", ParentID: maybeParent(), ChildIDs: pickSome()})
		case 1:
			parent := maybeParent()
			_, err = eng.UpdateEquipment(ctx, pick(), UpdateInput{ParentID: &parent})
		case 2:
			_, err = eng.UpdateEquipment(ctx, pick(), UpdateInput{PartIDs: pickSome()})
		case 3:
			if rng.Intn(3) == 0 {
				_, err = eng.DeleteEquipment(ctx, pick())
			}
		}
		if err != nil {
			require.True(t,
				errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrCycle) || errors.Is(err, apperrors.ErrNotFound),
				"step %d: unexpected error %v", step, err)
		}

		state := snapshot(t, tx)
		list := make([]entities.Equipment, 0, len(state))
		for _, e := range state {
			list = append(list, e)
		}
		report := CheckIntegrity(list, nil)
		require.True(t, report.OK(), "step %d: %+v", step, report.Violations)

		for id := range state {
			desc, err := eng.Descendants(ctx, id)
			require.NoError(t, err)
			assert.NotContains(t, equipmentIDs(desc), id)
		}
	}
}
