package domain

import (
	"strings"
	"time"
	"unicode"
)

// Kind is the principal variant tag. It is persisted with sessions and
// recovery bindings so a principal never has to be re-classified by
// structural inspection after load.
type Kind string

const (
	KindTenant Kind = "Tenant"
	KindAgent  Kind = "Agent"
)

// ParseKind maps a stored variant tag back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindTenant:
		return KindTenant, true
	case KindAgent:
		return KindAgent, true
	}
	return "", false
}

// Principal is a registered user, either a Tenant or an Agent. The two
// variants live in separate tables; Kind records which one this record
// came from. The agent-only fields (Listings, Reviews, RatingSum,
// RatingCount) stay zero for tenants.
type Principal struct {
	PrincipalID  string   `json:"id" dynamodbav:"principal_id"`
	Kind         Kind     `json:"kind" dynamodbav:"kind"`
	FirstName    string   `json:"first_name" dynamodbav:"first_name"`
	LastName     string   `json:"last_name" dynamodbav:"last_name"`
	Email        string   `json:"email" dynamodbav:"email"`
	Phone        *string  `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string   `json:"-" dynamodbav:"password_hash"`
	Cart         []string `json:"cart" dynamodbav:"cart"`

	// Agent-only.
	Listings    []string  `json:"listings,omitempty" dynamodbav:"listings"`
	Reviews     []Review  `json:"reviews,omitempty" dynamodbav:"reviews"`
	RatingSum   int       `json:"-" dynamodbav:"rating_sum"`
	RatingCount int       `json:"-" dynamodbav:"rating_count"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Rating returns the mean of all review ratings. The mean is derived from a
// running (sum, count) pair so concurrent review writes can update it with
// atomic arithmetic instead of read-modify-write.
func (p *Principal) Rating() float64 {
	if p.RatingCount == 0 {
		return 0
	}
	return float64(p.RatingSum) / float64(p.RatingCount)
}

// FindReview returns the index of the reviewer's embedded review, or -1.
// Linear scan; the list is expected to stay small.
func (p *Principal) FindReview(reviewerID string) int {
	for i := range p.Reviews {
		if p.Reviews[i].ReviewerID == reviewerID {
			return i
		}
	}
	return -1
}

// Review is a reviewer's rating+comment embedded in an Agent record, with a
// snapshot of the reviewer's name at review time.
type Review struct {
	ReviewerID        string `json:"reviewer_id" dynamodbav:"reviewer_id"`
	ReviewerFirstName string `json:"reviewer_first_name" dynamodbav:"reviewer_first_name"`
	ReviewerLastName  string `json:"reviewer_last_name" dynamodbav:"reviewer_last_name"`
	Rating            int    `json:"rating" dynamodbav:"rating"`
	Comment           string `json:"comment,omitempty" dynamodbav:"comment"`
}

type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Phone     *string `json:"phone"`
	IsAgent   *bool   `json:"is_agent" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// TitleCase uppercases the first rune and lowercases the rest, so profile
// names and recovery lookups agree on one canonical form.
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
