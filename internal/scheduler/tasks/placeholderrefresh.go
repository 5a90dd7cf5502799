package tasks

import (
	"context"

	"github.com/watchnext/watchnext/internal/placeholder"
	"github.com/watchnext/watchnext/internal/scheduler"
)

const PlaceholderRefreshTaskID = "placeholder-refresh"

// RegisterPlaceholderRefreshTask schedules the placeholder directory
// reconciliation. It runs shortly after each sync slot so freshly
// cached recommendations get materialized without waiting a full
// cycle.
func RegisterPlaceholderRefreshTask(sched *scheduler.Scheduler, m *placeholder.Materializer, cron string) error {
	if cron == "" {
		cron = "10 */6 * * *"
	}
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          PlaceholderRefreshTaskID,
		Name:        "Placeholder Refresh",
		Description: "Reconcile on-disk placeholder stubs with cached recommendations",
		Cron:        cron,
		RunOnStart:  false,
		Func: func(context.Context) error {
			_, _, err := m.Refresh()
			return err
		},
	})
}
