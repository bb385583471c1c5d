package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueDueScan        = "notifier_scan"
	QueueRetentionSweep = "notifier_sweep"

	TaskDueScan        = "notifier:scan"
	TaskRetentionSweep = "notifier:sweep"
)

// ScanPayload records what kicked off a scan; the scheduler stamps "cron",
// the HTTP surface stamps "manual".
type ScanPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

type SweepPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

var (
	client    *asynq.Client
	inspector *asynq.Inspector
)

// InitQueue initializes the Redis connection for Asynq
func InitQueue(redisAddr string) error {
	redisOpt := asynq.RedisClientOpt{
		Addr: redisAddr,
	}

	client = asynq.NewClient(redisOpt)
	inspector = asynq.NewInspector(redisOpt)

	// Test connection
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	// Recreate client after test
	client = asynq.NewClient(redisOpt)

	slog.Info("Successfully initialized task queue")
	return nil
}

// EnqueueDueScan kicks off an immediate out-of-schedule scan.
func EnqueueDueScan() (string, error) {
	payloadBytes, err := json.Marshal(ScanPayload{TriggeredBy: "manual"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %v", err)
	}

	task := asynq.NewTask(TaskDueScan, payloadBytes)

	info, err := client.Enqueue(task,
		asynq.Queue(QueueDueScan),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue scan task: %v", err)
	}

	return info.ID, nil
}

// GetScanStatus returns the current status of a scan task.
func GetScanStatus(taskID string) (*asynq.TaskInfo, error) {
	info, err := inspector.GetTaskInfo(QueueDueScan, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task info: %v", err)
	}
	return info, nil
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}
