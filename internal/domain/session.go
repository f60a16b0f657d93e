package domain

import "time"

// Session is an established authentication for one principal. The record
// carries the principal reference and its variant tag so later requests
// resolve the principal with a single keyed lookup.
type Session struct {
	SessionID   string     `json:"id" dynamodbav:"session_id"`
	PrincipalID string     `json:"principal_id" dynamodbav:"principal_id"`
	Kind        Kind       `json:"kind" dynamodbav:"kind"`
	Email       string     `json:"email" dynamodbav:"email"`
	Enable      bool       `json:"enable" dynamodbav:"enable"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
	Principal   *Principal `json:"principal,omitempty" dynamodbav:"-"`
}
