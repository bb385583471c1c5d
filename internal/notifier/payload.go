package notifier

import (
	"time"

	"firebase.google.com/go/v4/messaging"
)

// BuildMulticastMessage assembles the FCM payload for one due record. The
// client app routes on the data block; the notification block is what the
// OS renders when the app is backgrounded.
func BuildMulticastMessage(record *NotificationRequest, tokens []string) *messaging.MulticastMessage {
	title := record.Title
	if title == "" {
		title = DefaultTitle
	}
	body := record.Body
	if body == "" {
		body = DefaultBody
	}

	return &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"courseId":     record.CourseID,
			"classId":      record.ClassID,
			"courseName":   record.CourseName,
			"click_action": ClickAction,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: AndroidChannelID,
				Sound:     "default",
				Priority:  messaging.PriorityHigh,
			},
		},
		Tokens: tokens,
	}
}

// BuildTestMessage assembles the fixed single-recipient payload used to
// verify the delivery pipeline end to end.
func BuildTestMessage(token string, now time.Time) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: "Test Notification",
			Body:  "This is a test notification from the dispatcher!",
		},
		Data: map[string]string{
			"test":      "true",
			"timestamp": now.Format(time.RFC3339),
		},
		Token: token,
	}
}
