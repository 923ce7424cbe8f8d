package dto

// Typed payloads for the job types this deployment registers. The queue
// itself stays payload-agnostic; these exist so enqueue can reject garbage
// before it is persisted.

type SendEmailPayload struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

type SendNotificationPayload struct {
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type MaintenancePayload struct {
	Task string `json:"task" validate:"required"`
}
