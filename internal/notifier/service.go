package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"

	"classnotifier/internal/config"
)

// RecordStore is the slice of the persistent store the dispatcher needs.
type RecordStore interface {
	DueBetween(ctx context.Context, from, to time.Time) ([]*NotificationRequest, error)
	Claim(ctx context.Context, id string, at time.Time) error
	Release(ctx context.Context, id string) error
	ReleaseStale(ctx context.Context, before time.Time) (int, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkSkipped(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
	FindStudentWithToken(ctx context.Context) (*UserAccount, error)
}

// Messenger is the push gateway surface, satisfied by *messaging.Client.
type Messenger interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Service runs the due-notification scans, the retention sweep, and the
// ad-hoc test delivery.
type Service struct {
	store      RecordStore
	messenger  Messenger
	window     time.Duration
	retention  time.Duration
	claimLease time.Duration
}

var DispatchService *Service

func NewService(store RecordStore, messenger Messenger, window, retention, claimLease time.Duration) *Service {
	return &Service{
		store:      store,
		messenger:  messenger,
		window:     window,
		retention:  retention,
		claimLease: claimLease,
	}
}

func InitDispatchService(settings *config.Settings) error {
	client := config.FirebaseConnection
	if client == nil || client.Firestore == nil || client.Messaging == nil {
		return errors.New("firebase connection not initialized. Call config.InitFireStore() first")
	}

	store := NewFirestoreStore(client.Firestore, settings.SweepPageSize)
	DispatchService = NewService(store, client.Messaging, settings.ScanWindow, settings.RetentionPeriod, settings.ClaimLease)
	slog.Info("Dispatch service initialized successfully")
	return nil
}

func GetDispatchService() *Service {
	if DispatchService == nil {
		slog.Error("Dispatch service not initialized. Call InitDispatchService() first.")
		return nil
	}
	return DispatchService
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RunDueScan selects every unsent record scheduled within the lookback
// window ending at now and dispatches each one on its own goroutine. The
// scan returns once every per-record pipeline has settled; one record's
// failure never aborts its siblings. Records older than the window are left
// alone: the lookback equals the tick period, so a scan that fires on time
// catches everything since the previous run, and ticks missed beyond that
// are accepted as skipped deliveries.
func (s *Service) RunDueScan(ctx context.Context, now time.Time) (*ScanSummary, error) {
	summary := &ScanSummary{RunID: uuid.New().String()}

	// Recover claims orphaned by a crash or a failed release before
	// selecting, so a wedged dispatching record becomes pending again. A
	// reclaim failure does not block the scan itself.
	released, err := s.store.ReleaseStale(ctx, now.Add(-s.claimLease))
	if err != nil {
		slog.Error("Failed to release stale claims", "run_id", summary.RunID, "error", err)
	} else if released > 0 {
		slog.Info("Released stale claims", "run_id", summary.RunID, "count", released)
	}

	due, err := s.store.DueBetween(ctx, now.Add(-s.window), now)
	if err != nil {
		slog.Error("Failed to query due notifications", "run_id", summary.RunID, "error", err)
		return summary, err
	}
	if len(due) == 0 {
		slog.Info("No notifications to send", "run_id", summary.RunID)
		return summary, nil
	}

	summary.Attempted = len(due)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, record := range due {
		wg.Add(1)
		go func(record *NotificationRequest) {
			defer wg.Done()
			result := s.process(ctx, record, now)

			mu.Lock()
			defer mu.Unlock()
			switch result {
			case outcomeSent:
				summary.Sent++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Failed++
			}
		}(record)
	}
	wg.Wait()

	slog.Info("Scan complete",
		"run_id", summary.RunID,
		"attempted", summary.Attempted,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// process runs one record through claim, sanitize, dispatch and commit.
func (s *Service) process(ctx context.Context, record *NotificationRequest, now time.Time) outcome {
	if err := s.store.Claim(ctx, record.ID, now); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			slog.Info("Notification claimed by a concurrent scan", "notification_id", record.ID)
			return outcomeSkipped
		}
		slog.Error("Failed to claim notification", "notification_id", record.ID, "error", err)
		return outcomeFailed
	}

	validTokens := SanitizeTokens(record.StudentTokens)
	if len(validTokens) == 0 {
		slog.Info("No valid tokens for notification", "notification_id", record.ID)
		if err := s.store.MarkSkipped(ctx, record.ID, now); err != nil {
			slog.Error("Failed to mark notification as skipped", "notification_id", record.ID, "error", err)
		}
		return outcomeSkipped
	}

	message := BuildMulticastMessage(record, validTokens)
	response, err := s.messenger.SendEachForMulticast(ctx, message)
	if err != nil {
		slog.Error("Failed to send notification", "notification_id", record.ID, "error", err)
		s.release(ctx, record.ID)
		return outcomeFailed
	}

	// A partial gateway success still commits; individual token failures
	// are the recipient's problem (stale tokens), not the record's.
	slog.Info("Successfully sent notification",
		"notification_id", record.ID,
		"success_count", response.SuccessCount,
		"failure_count", response.FailureCount)

	if err := s.store.MarkSent(ctx, record.ID, now); err != nil {
		slog.Error("Failed to mark notification as sent", "notification_id", record.ID, "error", err)
		s.release(ctx, record.ID)
		return outcomeFailed
	}
	return outcomeSent
}

func (s *Service) release(ctx context.Context, id string) {
	if err := s.store.Release(ctx, id); err != nil {
		slog.Error("Failed to release claimed notification", "notification_id", id, "error", err)
	}
}

// RunRetentionSweep deletes delivered and terminally skipped records older
// than the retention period. Running it twice back to back deletes once.
func (s *Service) RunRetentionSweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.retention)

	deleted, err := s.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to clean up old notifications", "cutoff", cutoff, "error", err)
		return deleted, err
	}

	slog.Info("Deleted old notifications", "count", deleted, "cutoff", cutoff)
	return deleted, nil
}

// SendTestNotification delivers a fixed payload to one student account that
// holds a push token, verifying the pipeline end to end.
func (s *Service) SendTestNotification(ctx context.Context, now time.Time) (*TestResult, error) {
	account, err := s.store.FindStudentWithToken(ctx)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(account.FCMToken)
	if token == "" {
		return nil, ErrNoEligibleStudent
	}

	messageID, err := s.messenger.Send(ctx, BuildTestMessage(token, now))
	if err != nil {
		return nil, fmt.Errorf("failed to send test notification: %w", err)
	}

	return &TestResult{
		MessageID: messageID,
		SentTo:    account.Name,
	}, nil
}
