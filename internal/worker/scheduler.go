package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"classnotifier/internal/queue"
)

// Scheduler owns the recurring triggers: a scan every minute and a sweep
// daily at midnight, both evaluated in the configured timezone.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddr, timezone string) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr: redisAddr,
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: location,
	})

	scanPayload, err := json.Marshal(queue.ScanPayload{TriggeredBy: "cron"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan payload: %w", err)
	}
	sweepPayload, err := json.Marshal(queue.SweepPayload{TriggeredBy: "cron"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sweep payload: %w", err)
	}

	// The scan window equals the tick period, so a late trigger still
	// catches everything since the previous run.
	_, err = scheduler.Register("@every 1m",
		asynq.NewTask(queue.TaskDueScan, scanPayload),
		asynq.Queue(queue.QueueDueScan),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register scan schedule: %w", err)
	}

	_, err = scheduler.Register("0 0 * * *",
		asynq.NewTask(queue.TaskRetentionSweep, sweepPayload),
		asynq.Queue(queue.QueueRetentionSweep),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register sweep schedule: %w", err)
	}

	return &Scheduler{scheduler: scheduler}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("Starting scheduler",
		"scan_schedule", "@every 1m",
		"sweep_schedule", "0 0 * * *")

	if err := s.scheduler.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	s.scheduler.Shutdown()
	slog.Info("Scheduler stopped")
	return nil
}
