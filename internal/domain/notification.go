package domain

import "time"

// Notification dispatch kinds.
const (
	NotificationRecoveryOTP = "recovery-otp"
	NotificationBooking     = "booking"
)

// Notification delivery states.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification records one outbound dispatch (email or SMS) so delivery
// failures stay observable after the enqueue call has returned.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	PrincipalID    string    `json:"principal_id" dynamodbav:"principal_id"`
	Kind           string    `json:"kind" dynamodbav:"kind"`
	Subject        string    `json:"subject" dynamodbav:"subject"`
	Status         string    `json:"status" dynamodbav:"status"`
	Detail         string    `json:"detail,omitempty" dynamodbav:"detail"` // failure reason, if any
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
