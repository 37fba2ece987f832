package workers

import (
	"context"
	"log/slog"
	"time"

	"collabrick/contract"
	"collabrick/domain/activity"
	"collabrick/repositories"
)

// RetentionKeep is how many events survive per (renovation, category)
// partition after a trim pass.
const RetentionKeep = 20

var _ contract.Worker = (*RetentionWorker)(nil)

// RetentionWorker bounds the stored activity feed. On every tick it ranks
// each renovation's events per category by recency and deletes everything
// past the newest RetentionKeep. Invite and general events are trimmed
// independently so a burst of task changes cannot evict invite history.
type RetentionWorker struct {
	log      *slog.Logger
	activity repositories.IActivityRepository
	interval time.Duration
}

func NewRetentionWorker(log *slog.Logger, activity repositories.IActivityRepository, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{log: log, activity: activity, interval: interval}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single trim pass over every partition. It is
// idempotent and safe to trigger out of cycle. A failing partition is
// logged and skipped; it gets another chance on the next pass.
func (w *RetentionWorker) RunOnce(ctx context.Context) {
	partitions, err := w.activity.Partitions()
	if err != nil {
		w.log.Error("Retention pass could not list partitions", "error", err)
		return
	}

	deleted := 0
	for _, renovationID := range partitions {
		if ctx.Err() != nil {
			return
		}
		for _, category := range []activity.Category{activity.CategoryGeneral, activity.CategoryInvite} {
			n, err := w.activity.TrimPartition(renovationID, category, RetentionKeep)
			if err != nil {
				w.log.Warn("Trim failed for partition",
					"renovation", renovationID,
					"category", category,
					"error", err)
				continue
			}
			deleted += n
		}
	}
	if deleted > 0 {
		w.log.Info("Cleaned old live updates", "deleted", deleted)
	}
}
