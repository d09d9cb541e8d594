package listeners

import (
	"context"
	"testing"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditListener_RecordsEvents(t *testing.T) {
	bus := eventbus.New(zap.NewNop())
	audit := NewAuditListener(zap.NewNop(), 2)
	audit.Register(bus)

	bus.Publish(context.Background(), events.EquipmentChangedEvent{
		Kind:      events.EquipmentCreated,
		Equipment: entities.Equipment{ID: "equip-1", Name: "Pump"},
	})
	bus.Wait()
	bus.Publish(context.Background(), events.EquipmentDeletedEvent{ID: "equip-1", DetachedChildren: []string{"equip-2"}, RemovedTasks: 3})
	bus.Wait()
	bus.Publish(context.Background(), events.InventoryChangedEvent{Action: "deleted", ID: "inv-1"})
	bus.Wait()

	recent := audit.Recent(10)
	require.Len(t, recent, 2, "журнал ограничен лимитом")
	assert.Equal(t, events.InventoryChanged, recent[0].Event)
	assert.Equal(t, events.EquipmentDeleted, recent[1].Event)
	assert.Contains(t, recent[1].Summary, "tasks=3")
	assert.Contains(t, recent[1].Summary, "equip-2")
}
