package listeners

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/revenant-13/maintenance-app/internal/events"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"

	"go.uber.org/zap"
)

// AuditEntry - одна запись журнала изменений.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Event   string    `json:"event"`
	Subject string    `json:"subject"`
	Summary string    `json:"summary"`
}

// AuditListener пишет события изменений в лог и держит последние записи в памяти.
type AuditListener struct {
	logger  *zap.Logger
	now     func() time.Time
	limit   int
	mu      sync.Mutex
	entries []AuditEntry
}

func NewAuditListener(logger *zap.Logger, limit int) *AuditListener {
	if limit <= 0 {
		limit = 200
	}
	return &AuditListener{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		limit:  limit,
	}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	for _, name := range []string{
		events.EquipmentCreated,
		events.EquipmentUpdated,
		events.EquipmentDeleted,
		events.InventoryChanged,
		events.TaskChanged,
	} {
		bus.Subscribe(name, l.handle)
	}
	l.logger.Info("AuditListener подписан на события изменений")
}

func (l *AuditListener) handle(ctx context.Context, event eventbus.Event) error {
	entry := AuditEntry{At: l.now(), Event: event.Name()}

	switch e := event.(type) {
	case events.EquipmentChangedEvent:
		entry.Subject = e.Equipment.ID
		entry.Summary = fmt.Sprintf("name=%q parent=%s parts=%d", e.Equipment.Name, orNone(e.Equipment.ParentID.String), len(e.Equipment.PartIDs))
	case events.EquipmentDeletedEvent:
		entry.Subject = e.ID
		entry.Summary = fmt.Sprintf("detached=[%s] parent=%s tasks=%d", strings.Join(e.DetachedChildren, ","), orNone(e.UnlinkedParent), e.RemovedTasks)
		if len(e.DanglingIDs) > 0 {
			entry.Summary += fmt.Sprintf(" dangling=[%s]", strings.Join(e.DanglingIDs, ","))
		}
	case events.InventoryChangedEvent:
		entry.Subject = e.ID
		entry.Summary = e.Action
	case events.TaskChangedEvent:
		entry.Subject = e.ID
		entry.Summary = fmt.Sprintf("%s equipment=%s", e.Action, e.EquipmentID)
	default:
		return fmt.Errorf("audit: unexpected event %T", event)
	}

	l.logger.Info("audit",
		zap.String("event", entry.Event),
		zap.String("subject", entry.Subject),
		zap.String("summary", entry.Summary),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	return nil
}

// Recent returns up to n newest entries, newest first.
func (l *AuditListener) Recent(n int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]AuditEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
