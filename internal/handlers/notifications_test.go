package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/labstack/echo/v4"

	"classnotifier/internal/notifier"
)

// stubStore satisfies notifier.RecordStore; only the user lookup matters to
// the test-trigger handler.
type stubStore struct {
	student    *notifier.UserAccount
	studentErr error
}

func (s *stubStore) DueBetween(context.Context, time.Time, time.Time) ([]*notifier.NotificationRequest, error) {
	return nil, nil
}
func (s *stubStore) Claim(context.Context, string, time.Time) error       { return nil }
func (s *stubStore) Release(context.Context, string) error                { return nil }
func (s *stubStore) ReleaseStale(context.Context, time.Time) (int, error) { return 0, nil }
func (s *stubStore) MarkSent(context.Context, string, time.Time) error    { return nil }
func (s *stubStore) MarkSkipped(context.Context, string, time.Time) error { return nil }
func (s *stubStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
func (s *stubStore) FindStudentWithToken(context.Context) (*notifier.UserAccount, error) {
	return s.student, s.studentErr
}

type stubMessenger struct {
	messageID string
	sendErr   error
}

func (m *stubMessenger) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	return &messaging.BatchResponse{SuccessCount: len(msg.Tokens)}, nil
}

func (m *stubMessenger) Send(context.Context, *messaging.Message) (string, error) {
	return m.messageID, m.sendErr
}

func setDispatchService(t *testing.T, store *stubStore, messenger *stubMessenger) {
	t.Helper()
	previous := notifier.DispatchService
	notifier.DispatchService = notifier.NewService(store, messenger, time.Minute, 30*24*time.Hour, 2*time.Minute)
	t.Cleanup(func() { notifier.DispatchService = previous })
}

func performTestNotification(t *testing.T) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, TestNotification(c)
}

func TestTestNotificationSuccess(t *testing.T) {
	setDispatchService(t,
		&stubStore{student: &notifier.UserAccount{Role: "student", FCMToken: "tok-a", Name: "Amal"}},
		&stubMessenger{messageID: "projects/p/messages/42"},
	)

	rec, err := performTestNotification(t)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body TestNotificationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !body.Success || body.MessageID != "projects/p/messages/42" || body.SentTo != "Amal" {
		t.Errorf("body = %+v", body)
	}
}

func TestTestNotificationNoEligibleStudent(t *testing.T) {
	setDispatchService(t,
		&stubStore{studentErr: notifier.ErrNoEligibleStudent},
		&stubMessenger{},
	)

	rec, err := performTestNotification(t)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Success {
		t.Error("success flag true on not-found response")
	}
	if body.Error != "No students with FCM tokens found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestTestNotificationGatewayFailure(t *testing.T) {
	setDispatchService(t,
		&stubStore{student: &notifier.UserAccount{Role: "student", FCMToken: "tok-a", Name: "Amal"}},
		&stubMessenger{sendErr: errors.New("gateway unavailable")},
	)

	rec, err := performTestNotification(t)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("body = %+v, want failure with message", body)
	}
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthCheck(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
