package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"classnotifier/internal/notifier"
	"classnotifier/internal/queue"
)

type TestNotificationResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	SentTo    string `json:"sentTo"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// TestNotification sends one fixed payload to an arbitrary student account
// holding a push token and reports the gateway outcome.
func TestNotification(c echo.Context) error {
	service := notifier.GetDispatchService()
	if service == nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "dispatch service not initialized",
		})
	}

	result, err := service.SendTestNotification(c.Request().Context(), time.Now())
	if err != nil {
		if errors.Is(err, notifier.ErrNoEligibleStudent) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "No students with FCM tokens found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, TestNotificationResponse{
		Success:   true,
		MessageID: result.MessageID,
		SentTo:    result.SentTo,
	})
}

// TriggerScan enqueues an immediate out-of-schedule due-notification scan.
func TriggerScan(c echo.Context) error {
	taskID, err := queue.EnqueueDueScan()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to enqueue scan"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID})
}

// GetScanStatus reports the state of a previously triggered scan task.
func GetScanStatus(c echo.Context) error {
	info, err := queue.GetScanStatus(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
	}

	response := map[string]interface{}{
		"task_id": info.ID,
		"state":   info.State.String(),
	}
	if len(info.Result) > 0 {
		response["result"] = string(info.Result)
	}
	return c.JSON(http.StatusOK, response)
}
