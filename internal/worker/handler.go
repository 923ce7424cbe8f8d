package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"gorm.io/datatypes"
)

// HandlerFunc executes one claimed job. What a handler actually does is
// outside the queue's concern; these built-ins simulate the work so the
// pipeline is exercisable end to end.
type HandlerFunc func(ctx context.Context, payload datatypes.JSON) error

// DefaultHandlers wires the job types this deployment registers.
func DefaultHandlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		config.JobTypeSendEmail:        SendEmailHandler,
		config.JobTypeSendNotification: SendNotificationHandler,
		config.JobTypeMaintenance:      MaintenanceHandler,
	}
}

// SendEmailHandler simulates delivering an email.
func SendEmailHandler(ctx context.Context, payload datatypes.JSON) error {
	var email dto.SendEmailPayload
	if err := json.Unmarshal(payload, &email); err != nil {
		return fmt.Errorf("unmarshal email payload: %w", err)
	}

	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("sent email to %s: %s", email.To, email.Subject)
	return nil
}

// SendNotificationHandler simulates pushing an in-app notification.
func SendNotificationHandler(ctx context.Context, payload datatypes.JSON) error {
	var note dto.SendNotificationPayload
	if err := json.Unmarshal(payload, &note); err != nil {
		return fmt.Errorf("unmarshal notification payload: %w", err)
	}

	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("notified user %s: %s", note.UserID, note.Title)
	return nil
}

// MaintenanceHandler runs housekeeping tasks enqueued by the janitor.
func MaintenanceHandler(ctx context.Context, payload datatypes.JSON) error {
	var task dto.MaintenancePayload
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("unmarshal maintenance payload: %w", err)
	}

	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("maintenance task done: %s", task.Task)
	return nil
}
