package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID. Every record key in the system comes from
// here: principals, sessions, houses, ratings and notifications.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
