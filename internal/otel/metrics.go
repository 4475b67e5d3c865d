package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	taskOpsCounter      metric.Int64Counter
	interactionsCounter metric.Int64Counter
	cacheLookupsCounter metric.Int64Counter
	scopedListsCounter  metric.Int64Counter
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		taskOpsCounter, err = m.Int64Counter("taskd_task_operations_total", metric.WithDescription("Total task operations (create, update, delete, etc.)"))
		if err != nil {
			return
		}
		interactionsCounter, err = m.Int64Counter("taskd_interactions_total", metric.WithDescription("Total interactions logged, by type"))
		if err != nil {
			return
		}
		cacheLookupsCounter, err = m.Int64Counter("taskd_cache_lookups_total", metric.WithDescription("Interaction cache lookups, by outcome (hit, miss, error)"))
		if err != nil {
			return
		}
		scopedListsCounter, err = m.Int64Counter("taskd_scoped_listings_total", metric.WithDescription("Scoped task listings served, by role and view"))
	})
	return err
}

// RecordTaskOp records a task operation (create, update, delete, etc.).
func RecordTaskOp(ctx context.Context, op string, status string) {
	if taskOpsCounter == nil {
		return
	}
	taskOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		AttrStatus.String(status),
	))
}

// RecordInteraction records one logged interaction.
func RecordInteraction(ctx context.Context, interactionType string) {
	if interactionsCounter == nil {
		return
	}
	interactionsCounter.Add(ctx, 1, metric.WithAttributes(AttrType.String(interactionType)))
}

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// RecordCacheLookup records one interaction cache lookup and its outcome.
func RecordCacheLookup(ctx context.Context, outcome string) {
	if cacheLookupsCounter == nil {
		return
	}
	cacheLookupsCounter.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

// RecordScopedListing records one role-scoped task listing served.
func RecordScopedListing(ctx context.Context, role, view string) {
	if scopedListsCounter == nil {
		return
	}
	scopedListsCounter.Add(ctx, 1, metric.WithAttributes(AttrRole.String(role), AttrView.String(view)))
}

// TaskCountFunc returns (pending, inProgress, completed) counts. Used for the
// taskd_tasks_total gauge.
type TaskCountFunc func() (pending, inProgress, completed int64)

// InitMetricsWithTaskCount creates instruments and optionally registers a callback for task gauges.
// Call after InitMeterProvider. If taskCount is nil, task gauges are not reported.
func InitMetricsWithTaskCount(ctx context.Context, taskCount TaskCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if taskCount == nil {
		return nil
	}
	m := Meter()
	tasksGauge, err := m.Float64ObservableGauge("taskd_tasks_total", metric.WithDescription("Number of tasks by status"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		pending, inProgress, completed := taskCount()
		o.ObserveFloat64(tasksGauge, float64(pending), metric.WithAttributes(AttrStatus.String("pending")))
		o.ObserveFloat64(tasksGauge, float64(inProgress), metric.WithAttributes(AttrStatus.String("in progress")))
		o.ObserveFloat64(tasksGauge, float64(completed), metric.WithAttributes(AttrStatus.String("completed")))
		return nil
	}, tasksGauge)
	return err
}
