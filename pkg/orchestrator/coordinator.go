package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// DefaultRetryInterval is how often the coordinator wakes to promote due
// retries and drain the queue.
const DefaultRetryInterval = time.Second

// RetryCoordinator periodically promotes tasks whose retry delay has
// elapsed back to pending and drains the ready queue. It is single-threaded
// per queue; overlap only happens if callers run multiple coordinators.
type RetryCoordinator struct {
	queue    *task.Queue
	interval time.Duration
	process  func(ctx context.Context, t *task.Task)
	logger   zerolog.Logger
}

// NewRetryCoordinator creates a coordinator over the queue. The process
// callback handles each ready task; the orchestrator's dispatch path is the
// usual choice.
func NewRetryCoordinator(queue *task.Queue, interval time.Duration, process func(ctx context.Context, t *task.Task), logger zerolog.Logger) *RetryCoordinator {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &RetryCoordinator{
		queue:    queue,
		interval: interval,
		process:  process,
		logger:   logger.With().Str("component", "retry_coordinator").Logger(),
	}
}

// Run ticks until the context is cancelled
func (c *RetryCoordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one coordinator round: promote due retries, then drain the
// ready queue.
func (c *RetryCoordinator) Tick(ctx context.Context) {
	promoted := c.queue.ProcessRetries()
	if len(promoted) > 0 {
		c.logger.Debug().Int("count", len(promoted)).Msg("retries promoted")
	}

	for {
		t := c.queue.PopNext()
		if t == nil {
			return
		}
		t.UpdateStatus(task.StatusQueued)
		c.process(ctx, t)
	}
}
