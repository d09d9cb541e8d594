package metrics

import (
	"errors"
	"time"

	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hierarchyOperations counts engine operations by outcome
	hierarchyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_hierarchy_operations_total",
		Help: "Equipment hierarchy operations by operation and result",
	}, []string{"operation", "result"})

	hierarchyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_hierarchy_operation_duration_seconds",
		Help:    "Equipment hierarchy operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation"})

	txRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_store_tx_retries_total",
		Help: "Transactions re-executed after a write conflict",
	}, []string{"backend"})

	cascadeRemovedTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_cascade_removed_tasks_total",
		Help: "Maintenance tasks removed by equipment deletion",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"cache", "result"})
)

// ResultLabel collapses an error into a low-cardinality label value.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrCycle):
		return "cycle"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func ObserveOperation(operation string, start time.Time, err error) {
	hierarchyOperations.WithLabelValues(operation, ResultLabel(err)).Inc()
	hierarchyDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func TxRetry(backend string) { txRetries.WithLabelValues(backend).Inc() }

func CascadeRemovedTasks(n int) {
	if n > 0 {
		cascadeRemovedTasks.Add(float64(n))
	}
}

func CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}
