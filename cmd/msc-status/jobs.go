package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

// jobTimeout bounds a single run of a maintenance job
const jobTimeout = 30 * time.Second

// job is a periodic maintenance task
type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

// scheduleJobs registers every job on c. A failing or panicking run is
// logged and never stops the scheduler.
func scheduleJobs(c *cron.Cron, jobs []job, logger *observability.Logger) error {
	for _, j := range jobs {
		if _, err := c.AddFunc(j.schedule, func() { runJob(j, logger) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		logger.WithFields(map[string]interface{}{
			"job":      j.name,
			"schedule": j.schedule,
		}).Debug("Scheduled maintenance job")
	}
	return nil
}

func runJob(j job, logger *observability.Logger) {
	defer observability.RecoverPanic(logger, "cron: "+j.name)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.run(ctx); err != nil {
		logger.WithError(err).WithField("job", j.name).Warn("Maintenance job failed")
	}
}

// cleanupJob drops idle buckets from the in-memory rate limiter
func cleanupJob(cleanup func() int, logger *observability.Logger) job {
	return job{
		name:     "ratelimit-cleanup",
		schedule: "@every 5m",
		run: func(ctx context.Context) error {
			if n := cleanup(); n > 0 {
				logger.WithField("removed", n).Debug("Removed idle rate limit buckets")
			}
			return nil
		},
	}
}

// replicaJob closes replicas that stopped answering pings
func replicaJob(prune func(ctx context.Context) int) job {
	return job{
		name:     "prune-replicas",
		schedule: "@every 1m",
		run: func(ctx context.Context) error {
			prune(ctx)
			return nil
		},
	}
}

// statsJob publishes pool statistics and the catalog size to Prometheus
func statsJob(metrics *observability.Metrics, stats func() sql.DBStats, count func(ctx context.Context) (int64, error)) job {
	return job{
		name:     "publish-stats",
		schedule: "@every 30s",
		run: func(ctx context.Context) error {
			metrics.UpdateDBStats(stats())

			n, err := count(ctx)
			if err != nil {
				return fmt.Errorf("failed to count components: %w", err)
			}
			metrics.SetComponentsTotal(n)
			return nil
		},
	}
}
