package config

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

const (
	JobTypeSendEmail        = "SEND_EMAIL"
	JobTypeSendNotification = "SEND_NOTIFICATION"
	JobTypeMaintenance      = "MAINTENANCE"
)

var AllowedJobTypes = []string{
	JobTypeSendEmail,
	JobTypeSendNotification,
	JobTypeMaintenance,
}

// CancelSentinel marks jobs failed by explicit operator action. The health
// snapshot excludes it from the failure counts so manual cancellation never
// pollutes automatic alerting.
const CancelSentinel = "canceled by operator"

// MaxIdempotencyKeyLen bounds caller-supplied idempotency keys.
const MaxIdempotencyKeyLen = 256

// Signal kinds are opaque discriminators owned by the emitting feature.
// JobsChanged is the one kind this module emits itself, after each terminal
// job transition.
const SignalKindJobsChanged = "JOBS_CHANGED"
