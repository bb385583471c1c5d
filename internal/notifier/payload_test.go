package notifier

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildMulticastMessageDefaults(t *testing.T) {
	record := &NotificationRequest{ID: "n1"}
	tokens := []string{"tok-a", "tok-b"}

	msg := BuildMulticastMessage(record, tokens)

	if msg.Notification.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", msg.Notification.Title, DefaultTitle)
	}
	if msg.Notification.Body != DefaultBody {
		t.Errorf("body = %q, want %q", msg.Notification.Body, DefaultBody)
	}

	wantData := map[string]string{
		"courseId":     "",
		"classId":      "",
		"courseName":   "",
		"click_action": ClickAction,
	}
	if !reflect.DeepEqual(msg.Data, wantData) {
		t.Errorf("data = %v, want %v", msg.Data, wantData)
	}

	if !reflect.DeepEqual(msg.Tokens, tokens) {
		t.Errorf("tokens = %v, want %v", msg.Tokens, tokens)
	}
}

func TestBuildMulticastMessageExplicitFields(t *testing.T) {
	record := &NotificationRequest{
		ID:         "n2",
		Title:      "Math 101",
		Body:       "Starts in five minutes",
		CourseID:   "c-9",
		ClassID:    "cl-3",
		CourseName: "Mathematics",
	}

	msg := BuildMulticastMessage(record, []string{"tok-a"})

	if msg.Notification.Title != "Math 101" || msg.Notification.Body != "Starts in five minutes" {
		t.Errorf("notification = %+v, explicit title/body not kept", msg.Notification)
	}
	if msg.Data["courseId"] != "c-9" || msg.Data["classId"] != "cl-3" || msg.Data["courseName"] != "Mathematics" {
		t.Errorf("data = %v, context fields not carried", msg.Data)
	}
}

func TestBuildMulticastMessageAndroidHints(t *testing.T) {
	msg := BuildMulticastMessage(&NotificationRequest{ID: "n3"}, []string{"tok-a"})

	if msg.Android == nil || msg.Android.Notification == nil {
		t.Fatal("android config missing")
	}
	if msg.Android.Priority != "high" {
		t.Errorf("android priority = %q, want high", msg.Android.Priority)
	}
	if msg.Android.Notification.ChannelID != AndroidChannelID {
		t.Errorf("channel = %q, want %q", msg.Android.Notification.ChannelID, AndroidChannelID)
	}
	if msg.Android.Notification.Sound != "default" {
		t.Errorf("sound = %q, want default", msg.Android.Notification.Sound)
	}
}

func TestBuildTestMessage(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	msg := BuildTestMessage("tok-z", now)

	if msg.Token != "tok-z" {
		t.Errorf("token = %q, want tok-z", msg.Token)
	}
	if msg.Data["test"] != "true" {
		t.Errorf("data.test = %q, want true", msg.Data["test"])
	}
	if msg.Data["timestamp"] != now.Format(time.RFC3339) {
		t.Errorf("timestamp = %q, want %q", msg.Data["timestamp"], now.Format(time.RFC3339))
	}
	if msg.Notification == nil || msg.Notification.Title == "" {
		t.Error("test message has no notification block")
	}
}
