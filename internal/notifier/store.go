package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

var (
	// ErrAlreadyClaimed reports that another scan claimed the record first.
	ErrAlreadyClaimed = errors.New("notification already claimed")
	// ErrNoEligibleStudent reports that no student account carries a push token.
	ErrNoEligibleStudent = errors.New("no students with FCM tokens found")
)

// FirestoreStore is the Firestore-backed record store for scheduled
// notifications and user lookups.
type FirestoreStore struct {
	db       *firestore.Client
	pageSize int
}

func NewFirestoreStore(db *firestore.Client, pageSize int) *FirestoreStore {
	return &FirestoreStore{
		db:       db,
		pageSize: pageSize,
	}
}

// DueBetween returns every unsent record whose scheduled time falls in the
// closed interval [from, to]. Records already claimed by a concurrent scan
// or terminally skipped are filtered out after decode; Firestore rejects a
// second inequality field on this query so the filter cannot live server-side.
func (s *FirestoreStore) DueBetween(ctx context.Context, from, to time.Time) ([]*NotificationRequest, error) {
	iter := s.db.Collection(CollectionScheduledNotifications).
		Where("sent", "==", false).
		Where("scheduledTime", ">=", from).
		Where("scheduledTime", "<=", to).
		Documents(ctx)
	defer iter.Stop()

	var due []*NotificationRequest
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query due notifications: %w", err)
		}

		record, err := decodeNotification(doc)
		if err != nil {
			// One malformed document must not block the rest of the scan.
			slog.Warn("Skipping malformed notification document", "notification_id", doc.Ref.ID, "error", err)
			continue
		}

		if !record.Pending() {
			continue
		}
		due = append(due, record)
	}

	return due, nil
}

func decodeNotification(doc *firestore.DocumentSnapshot) (*NotificationRequest, error) {
	var record NotificationRequest
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to parse notification %s: %w", doc.Ref.ID, err)
	}
	record.ID = doc.Ref.ID
	return &record, nil
}

// Claim transitions a record from pending to dispatching inside a
// transaction, so two overlapping scans cannot both dispatch it. The loser
// gets ErrAlreadyClaimed. The claim is stamped so a claim orphaned by a
// crash can be released once it outlives the lease.
func (s *FirestoreStore) Claim(ctx context.Context, id string, at time.Time) error {
	ref := s.db.Collection(CollectionScheduledNotifications).Doc(id)

	err := s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var record NotificationRequest
		if err := doc.DataTo(&record); err != nil {
			return err
		}
		if !record.Pending() {
			return ErrAlreadyClaimed
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: StatusDispatching},
			{Path: "claimedAt", Value: at},
		})
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to claim notification %s: %w", id, err)
	}
	return nil
}

// Release returns a claimed record to pending after a failed dispatch so
// the next tick can retry it.
func (s *FirestoreStore) Release(ctx context.Context, id string) error {
	_, err := s.db.Collection(CollectionScheduledNotifications).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: StatusPending},
		{Path: "claimedAt", Value: firestore.Delete},
	})
	if err != nil {
		return fmt.Errorf("failed to release notification %s: %w", id, err)
	}
	return nil
}

// ReleaseStale returns every dispatching record claimed before the given
// instant to pending. Claims go stale when the process dies between Claim
// and MarkSent, or a Release after a failed dispatch itself fails; without
// this pass those records would be excluded from every future scan.
func (s *FirestoreStore) ReleaseStale(ctx context.Context, before time.Time) (int, error) {
	iter := s.db.Collection(CollectionScheduledNotifications).
		Where("status", "==", StatusDispatching).
		Where("claimedAt", "<", before).
		Documents(ctx)
	defer iter.Stop()

	bulkWriter := s.db.BulkWriter(ctx)
	defer bulkWriter.End()

	released := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return released, fmt.Errorf("failed to query stale claims: %w", err)
		}

		_, err = bulkWriter.Update(doc.Ref, []firestore.Update{
			{Path: "status", Value: StatusPending},
			{Path: "claimedAt", Value: firestore.Delete},
		})
		if err != nil {
			return released, fmt.Errorf("failed to release stale claim %s: %w", doc.Ref.ID, err)
		}
		released++
	}

	bulkWriter.Flush()
	return released, nil
}

// MarkSent commits the delivered state. Setting sent=true on an already
// sent record is harmless; the field only ever moves false to true.
func (s *FirestoreStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Collection(CollectionScheduledNotifications).Doc(id).Update(ctx, []firestore.Update{
		{Path: "sent", Value: true},
		{Path: "sentAt", Value: at},
		{Path: "status", Value: StatusSent},
		{Path: "claimedAt", Value: firestore.Delete},
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification %s as sent: %w", id, err)
	}
	return nil
}

// MarkSkipped records the terminal state for a record whose token list
// sanitized to empty. Sent stays false; the sweeper reaps these by skippedAt.
func (s *FirestoreStore) MarkSkipped(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Collection(CollectionScheduledNotifications).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: StatusSkipped},
		{Path: "skippedAt", Value: at},
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification %s as skipped: %w", id, err)
	}
	return nil
}

// DeleteExpired removes delivered records with sentAt before the cutoff and
// skipped records with skippedAt before the cutoff. Deletes are committed in
// atomic pages no larger than the configured page size, looping until each
// query drains.
func (s *FirestoreStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	collection := s.db.Collection(CollectionScheduledNotifications)

	sentQuery := collection.
		Where("sent", "==", true).
		Where("sentAt", "<", cutoff)
	skippedQuery := collection.
		Where("status", "==", StatusSkipped).
		Where("skippedAt", "<", cutoff)

	deleted := 0
	for _, query := range []firestore.Query{sentQuery, skippedQuery} {
		n, err := s.deletePaged(ctx, query)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *FirestoreStore) deletePaged(ctx context.Context, query firestore.Query) (int, error) {
	deleted := 0
	for {
		docs, err := query.Limit(s.pageSize).Documents(ctx).GetAll()
		if err != nil {
			return deleted, fmt.Errorf("failed to query expired notifications: %w", err)
		}
		if len(docs) == 0 {
			return deleted, nil
		}

		batch := s.db.Batch()
		for _, doc := range docs {
			batch.Delete(doc.Ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete expired notifications: %w", err)
		}
		deleted += len(docs)

		if len(docs) < s.pageSize {
			return deleted, nil
		}
	}
}

// FindStudentWithToken returns one student account holding a push token,
// or ErrNoEligibleStudent when none exists.
func (s *FirestoreStore) FindStudentWithToken(ctx context.Context) (*UserAccount, error) {
	iter := s.db.Collection(CollectionUsers).
		Where("role", "==", StudentRole).
		Where("fcmToken", "!=", "").
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNoEligibleStudent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query student accounts: %w", err)
	}

	var account UserAccount
	if err := doc.DataTo(&account); err != nil {
		return nil, fmt.Errorf("failed to parse user %s: %w", doc.Ref.ID, err)
	}
	return &account, nil
}
