// Package tasks wires application services into the scheduler.
package tasks

import (
	"context"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/placeholder"
	"github.com/watchnext/watchnext/internal/scheduler"
	syncsvc "github.com/watchnext/watchnext/internal/sync"
)

const RecommendationSyncTaskID = "recommendation-sync"

// RegisterRecommendationSyncTask schedules the full recommendation
// refresh for all linked users. Placeholders are reconciled right
// after each pass so fresh recommendations become playable without
// waiting for the next refresh slot.
func RegisterRecommendationSyncTask(sched *scheduler.Scheduler, service *syncsvc.Service, m *placeholder.Materializer, cfg config.SyncConfig) error {
	cron := cfg.Cron
	if cron == "" {
		cron = "0 */6 * * *"
	}
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          RecommendationSyncTaskID,
		Name:        "Recommendation Sync",
		Description: "Refresh recommendations from Trakt for all linked users",
		Cron:        cron,
		RunOnStart:  cfg.RunOnStart,
		Func: func(ctx context.Context) error {
			if err := service.SyncAll(ctx); err != nil {
				return err
			}
			_, _, err := m.Refresh()
			return err
		},
	})
}
