package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// Broadcaster pushes an event to live subscribers.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// EventWorker delivers vendor events from the River queue to subscribers.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]

	Broadcaster Broadcaster
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing vendor event",
		"topic", job.Args.Topic,
		"vendor_id", job.Args.Vendor.ID,
		"status", job.Args.Vendor.DeactivationStatus,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	if w.Broadcaster != nil {
		w.Broadcaster.Broadcast(job.Args.Topic, job.Args.Vendor)
	}
	return nil
}
