// Package otp issues and verifies time-based one-time codes for the
// password recovery flow.
//
// All codes derive from one process-lifetime secret, generated at startup
// and injected here. That secret is shared across users: possession of a
// valid code proves nothing by itself, so redemption always goes through
// the single-use recovery binding as well. Treat the secret like any other
// long-lived credential.
package otp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	otplib "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// stepSeconds is the TOTP time step.
	stepSeconds = 30
	// skewSteps is the verification tolerance either side of "now":
	// 20 steps of 30 s gives roughly a 10-minute acceptance window.
	skewSteps = 20
)

// NewSecret returns a fresh base32-encoded shared secret.
func NewSecret() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return base32.StdEncoding.EncodeToString(b), nil
}

// Generator issues and verifies 6-digit time-based codes against a shared
// secret and the skew window above.
type Generator struct {
	secret string
	now    func() time.Time
}

func New(secret string) *Generator {
	return &Generator{secret: secret, now: time.Now}
}

// Issue derives the code for the current time step.
func (g *Generator) Issue() (string, error) {
	code, err := totp.GenerateCode(g.secret, g.now())
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return code, nil
}

// Verify reports whether code matches any time step within the skew window.
func (g *Generator) Verify(code string) bool {
	ok, err := totp.ValidateCustom(code, g.secret, g.now(), totp.ValidateOpts{
		Period:    stepSeconds,
		Skew:      skewSteps,
		Digits:    otplib.DigitsSix,
		Algorithm: otplib.AlgorithmSHA1,
	})
	return err == nil && ok
}
