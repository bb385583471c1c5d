package notifier

import "time"

const (
	CollectionScheduledNotifications = "scheduled_notifications"
	CollectionUsers                  = "users"
)

// Delivery lifecycle markers. An absent status field means pending so
// documents written before the status field existed keep flowing.
const (
	StatusPending     = "pending"
	StatusDispatching = "dispatching"
	StatusSent        = "sent"
	StatusSkipped     = "skipped"
)

const (
	DefaultTitle = "Class Starting Soon!"
	DefaultBody  = "Time to mark attendance!"

	ClickAction      = "FLUTTER_NOTIFICATION_CLICK"
	AndroidChannelID = "class_notifications"

	StudentRole = "student"
)

// NotificationRequest is a scheduled_notifications document. Records are
// created by the scheduling feature upstream; this service only flips the
// delivery state and eventually deletes them.
type NotificationRequest struct {
	ID            string     `firestore:"-"`
	Title         string     `firestore:"title"`
	Body          string     `firestore:"body"`
	CourseID      string     `firestore:"courseId"`
	ClassID       string     `firestore:"classId"`
	CourseName    string     `firestore:"courseName"`
	StudentTokens []string   `firestore:"studentTokens"`
	ScheduledTime time.Time  `firestore:"scheduledTime"`
	Sent          bool       `firestore:"sent"`
	SentAt        *time.Time `firestore:"sentAt"`
	Status        string     `firestore:"status"`
	SkippedAt     *time.Time `firestore:"skippedAt"`
	ClaimedAt     *time.Time `firestore:"claimedAt"`
}

// Pending reports whether the record is still eligible for dispatch.
func (n *NotificationRequest) Pending() bool {
	return !n.Sent && (n.Status == "" || n.Status == StatusPending)
}

// UserAccount is the slice of a users document this service reads.
type UserAccount struct {
	Role     string `firestore:"role"`
	FCMToken string `firestore:"fcmToken"`
	Name     string `firestore:"name"`
}

// ScanSummary aggregates the outcome of one due-notification scan.
type ScanSummary struct {
	RunID     string `json:"run_id"`
	Attempted int    `json:"attempted"`
	Sent      int    `json:"sent"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// TestResult is the outcome of an ad-hoc test delivery.
type TestResult struct {
	MessageID string
	SentTo    string
}
