package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"classnotifier/internal/notifier"
	"classnotifier/internal/queue"
)

type Worker struct {
	server *asynq.Server
}

func NewWorker(redisAddr string) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr: redisAddr,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				queue.QueueDueScan:        10,
				queue.QueueRetentionSweep: 1,
			},
		},
	)

	return &Worker{
		server: server,
	}
}

func (w *Worker) Start(ctx context.Context) error {

	mux := asynq.NewServeMux()

	mux.HandleFunc(queue.TaskDueScan, w.handleDueScan)
	mux.HandleFunc(queue.TaskRetentionSweep, w.handleRetentionSweep)

	slog.Info("Starting worker",
		"queues", []string{queue.QueueDueScan, queue.QueueRetentionSweep},
		"concurrency", 10)

	if err := w.server.Start(mux); err != nil {
		return err
	}

	slog.Info("Worker started successfully")

	<-ctx.Done()

	w.server.Stop()
	w.server.Shutdown()
	slog.Info("Worker stopped")
	return nil
}

// handleDueScan runs one due-notification scan. A scan error is not
// retried through asynq; the next scheduler tick is the retry.
func (w *Worker) handleDueScan(ctx context.Context, t *asynq.Task) error {
	var payload queue.ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	service := notifier.GetDispatchService()
	if service == nil {
		return errors.New("dispatch service not initialized")
	}

	summary, err := service.RunDueScan(ctx, time.Now())
	if err != nil {
		slog.Error("Due-notification scan failed",
			"run_id", summary.RunID,
			"triggered_by", payload.TriggeredBy,
			"error", err)
		return err
	}

	if writer := t.ResultWriter(); writer != nil {
		if result, err := json.Marshal(summary); err == nil {
			if _, err := writer.Write(result); err != nil {
				slog.Warn("Failed to record scan summary", "run_id", summary.RunID, "error", err)
			}
		}
	}

	slog.Info("Due-notification scan processed",
		"run_id", summary.RunID,
		"triggered_by", payload.TriggeredBy,
		"attempted", summary.Attempted,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return nil
}

func (w *Worker) handleRetentionSweep(ctx context.Context, t *asynq.Task) error {
	var payload queue.SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	service := notifier.GetDispatchService()
	if service == nil {
		return errors.New("dispatch service not initialized")
	}

	deleted, err := service.RunRetentionSweep(ctx, time.Now())
	if err != nil {
		return err
	}

	slog.Info("Retention sweep processed",
		"triggered_by", payload.TriggeredBy,
		"deleted", deleted)
	return nil
}
