package port

import (
	"context"
	"time"
)

// MetricPoint is a single observation shipped to an external metrics backend.
type MetricPoint struct {
	Name       string
	Value      float64
	Unit       string // Count, Milliseconds, Percent, None
	Dimensions map[string]string
	Timestamp  time.Time
}

// MetricsPublisher defines the interface for publishing metrics to external observability platforms.
type MetricsPublisher interface {
	// PublishBatch buffers points; implementations flush them in service-sized batches.
	PublishBatch(ctx context.Context, points []MetricPoint) error

	// Flush forces immediate publication of any buffered points.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
