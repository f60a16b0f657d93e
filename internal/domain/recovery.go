package domain

import (
	"fmt"
	"strings"
)

// RecoveryBindingTTLSeconds is how long an issued recovery code stays
// redeemable. Matches the OTP verification window (about 10 minutes) plus
// slack for delivery delay.
const RecoveryBindingTTLSeconds = 900

// RecoveryBinding links a one-time recovery code to the principal it
// authorizes a password reset for. Stored with a TTL and consumed (read and
// deleted atomically) at most once.
type RecoveryBinding struct {
	Code      string `json:"-" dynamodbav:"code"`
	Principal string `json:"-" dynamodbav:"principal"` // "<Tenant|Agent>:<principalID>"
	ExpiresAt int64  `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// BindPrincipal encodes a kind+id pair into the stored binding value.
func BindPrincipal(kind Kind, principalID string) string {
	return fmt.Sprintf("%s:%s", kind, principalID)
}

// SplitPrincipal decodes a stored binding value back into kind and id.
func SplitPrincipal(v string) (Kind, string, bool) {
	tag, id, found := strings.Cut(v, ":")
	if !found || id == "" {
		return "", "", false
	}
	kind, ok := ParseKind(tag)
	if !ok {
		return "", "", false
	}
	return kind, id, true
}
