// Package review keeps an agent's rating aggregate and the standalone
// rating records consistent with the reviews tenants submit.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/id"
)

type UpsertRequest struct {
	Rating  *int   `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment"`
}

type Service interface {
	// Upsert records or replaces the reviewer's review of an agent. A
	// reviewer holds at most one review per agent; submitting again
	// replaces it. A first review must carry a rating; on a replacement
	// the rating is optional and a comment-only update leaves the
	// aggregate untouched.
	Upsert(ctx context.Context, reviewerID, agentID string, req UpsertRequest) (*domain.Principal, error)
}

type agentStore interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
	AppendReview(ctx context.Context, agentID string, rev domain.Review) error
	SetReview(ctx context.Context, agentID string, idx int, rev domain.Review, sumDelta int) error
}

type tenantStore interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
}

type ratingStore interface {
	Put(ctx context.Context, rec *domain.Rating) error
	FindByPair(ctx context.Context, tenantID, agentID string) (*domain.Rating, error)
	UpdateTenantRating(ctx context.Context, ratingID string, rating int) error
}

type service struct {
	agents  agentStore
	tenants tenantStore
	ratings ratingStore
}

type ServiceDeps struct {
	AgentRepo  agentStore
	TenantRepo tenantStore
	RatingRepo ratingStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		agents:  deps.AgentRepo,
		tenants: deps.TenantRepo,
		ratings: deps.RatingRepo,
	}
}

func (s *service) Upsert(ctx context.Context, reviewerID, agentID string, req UpsertRequest) (*domain.Principal, error) {
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, fmt.Errorf("rating out of range: %w", domain.ErrBadRequest)
	}

	reviewer, err := s.tenants.Get(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	rev := domain.Review{
		ReviewerID:        reviewer.PrincipalID,
		ReviewerFirstName: reviewer.FirstName,
		ReviewerLastName:  reviewer.LastName,
		Comment:           req.Comment,
	}

	idx := agent.FindReview(reviewerID)
	switch {
	case idx < 0 && req.Rating == nil:
		// A first review without a rating leaves everything untouched.
		return nil, fmt.Errorf("rating is required: %w", domain.ErrBadRequest)
	case idx < 0:
		rev.Rating = *req.Rating
		if err := s.create(ctx, agent, rev); err != nil {
			return nil, err
		}
	case req.Rating == nil:
		// Comment-only update: keep the old rating, aggregate unchanged.
		rev.Rating = agent.Reviews[idx].Rating
		if err := s.agents.SetReview(ctx, agent.PrincipalID, idx, rev, 0); err != nil {
			return nil, err
		}
	default:
		rev.Rating = *req.Rating
		if err := s.replace(ctx, agent, idx, rev); err != nil {
			return nil, err
		}
	}
	return s.agents.Get(ctx, agentID)
}

// create appends a first-time review and mirrors it in a new rating record.
func (s *service) create(ctx context.Context, agent *domain.Principal, rev domain.Review) error {
	// A reviewer with no embedded review must have no rating record either.
	existing, err := s.ratings.FindByPair(ctx, rev.ReviewerID, agent.PrincipalID)
	if err == nil {
		return fmt.Errorf("orphan rating record %s: %w", existing.RatingID, domain.ErrIntegrity)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up rating record: %w", err)
	}
	if err := s.agents.AppendReview(ctx, agent.PrincipalID, rev); err != nil {
		return err
	}
	return s.ratings.Put(ctx, &domain.Rating{
		RatingID:     id.New(),
		TenantID:     rev.ReviewerID,
		AgentID:      agent.PrincipalID,
		TenantRating: rev.Rating,
	})
}

// replace swaps the existing review in place, applying only the rating
// delta so the count stays fixed, and syncs the rating record.
func (s *service) replace(ctx context.Context, agent *domain.Principal, idx int, rev domain.Review) error {
	rec, err := s.ratings.FindByPair(ctx, rev.ReviewerID, agent.PrincipalID)
	if errors.Is(err, domain.ErrNotFound) {
		// An embedded review without its mirror record is corrupt state,
		// surfaced rather than silently repaired.
		return fmt.Errorf("rating record missing for reviewer %s: %w", rev.ReviewerID, domain.ErrIntegrity)
	}
	if err != nil {
		return fmt.Errorf("look up rating record: %w", err)
	}
	delta := rev.Rating - agent.Reviews[idx].Rating
	if err := s.agents.SetReview(ctx, agent.PrincipalID, idx, rev, delta); err != nil {
		return err
	}
	return s.ratings.UpdateTenantRating(ctx, rec.RatingID, rev.Rating)
}
