package listeners

import (
	"context"

	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"

	"go.uber.org/zap"
)

// CacheListener сбрасывает агрегированные ключи кэша после любого изменения.
type CacheListener struct {
	cache  repositories.CacheRepositoryInterface
	keys   []string
	logger *zap.Logger
}

func NewCacheListener(cache repositories.CacheRepositoryInterface, logger *zap.Logger, keys ...string) *CacheListener {
	return &CacheListener{cache: cache, keys: keys, logger: logger}
}

func (l *CacheListener) Register(bus *eventbus.Bus) {
	for _, name := range []string{
		events.EquipmentCreated,
		events.EquipmentUpdated,
		events.EquipmentDeleted,
		events.InventoryChanged,
		events.TaskChanged,
	} {
		bus.Subscribe(name, l.handle)
	}
}

func (l *CacheListener) handle(ctx context.Context, event eventbus.Event) error {
	if len(l.keys) == 0 {
		return nil
	}
	if err := l.cache.Del(ctx, l.keys...); err != nil {
		return err
	}
	l.logger.Debug("Кэш сброшен", zap.String("event", event.Name()), zap.Strings("keys", l.keys))
	return nil
}
