package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrAlreadyAuthenticated rejects login/register attempts that arrive
	// with a live session attached.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrCodeExpired means a recovery code has no live binding: never issued,
	// already consumed, or TTL-expired. The caller cannot tell the three
	// cases apart.
	ErrCodeExpired = errors.New("code expired or unknown")

	// ErrAccountGone means a recovery binding pointed at a principal that no
	// longer exists (account deleted between issue and redeem).
	ErrAccountGone = errors.New("account no longer exists")

	// ErrIntegrity flags stored data that violates an application invariant,
	// e.g. a review with no matching rating record. Surfaced as a server
	// error instead of being silently repaired.
	ErrIntegrity = errors.New("data integrity violation")
)
