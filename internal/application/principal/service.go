package principal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldPhone        = "phone"
	fieldPasswordHash = "password_hash"
)

// AgentProfile is the public view of an agent: name, mean rating, reviews
// and listings. Contact details and credentials never appear here; the
// profile serves unauthenticated reads.
type AgentProfile struct {
	PrincipalID string          `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Rating      float64         `json:"rating"`
	Reviews     []domain.Review `json:"reviews"`
	Listings    []string        `json:"listings"`
}

// ProfileOf projects an agent record onto its public profile.
func ProfileOf(a *domain.Principal) *AgentProfile {
	reviews := a.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	listings := a.Listings
	if listings == nil {
		listings = []string{}
	}
	return &AgentProfile{
		PrincipalID: a.PrincipalID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Rating:      a.Rating(),
		Reviews:     reviews,
		Listings:    listings,
	}
}

type Service interface {
	// Register creates a tenant or agent account. currentSessionID follows
	// the same already-authenticated rule as login.
	Register(ctx context.Context, req domain.RegisterRequest, currentSessionID string) (*domain.Principal, error)
	Get(ctx context.Context, kind domain.Kind, principalID string) (*domain.Principal, error)
	GetAgent(ctx context.Context, agentID string) (*AgentProfile, error)
	Update(ctx context.Context, kind domain.Kind, principalID string, req domain.UpdateProfileRequest) (*domain.Principal, error)
	Delete(ctx context.Context, kind domain.Kind, principalID string) error
	ChangePassword(ctx context.Context, kind domain.Kind, principalID, currentPassword, newPassword string) error
}

type principalStore interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	Put(ctx context.Context, p *domain.Principal) error
	Update(ctx context.Context, principalID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, principalID string) error
}

type sessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	DisableByPrincipal(ctx context.Context, principalID string) error
}

type houseStore interface {
	ListByAgent(ctx context.Context, agentID string) ([]domain.House, error)
	HardDelete(ctx context.Context, houseID string) error
}

type ratingStore interface {
	ListByAgent(ctx context.Context, agentID string) ([]domain.Rating, error)
	HardDelete(ctx context.Context, ratingID string) error
}

type service struct {
	tenants     principalStore
	agents      principalStore
	sessionRepo sessionStore
	houseRepo   houseStore
	ratingRepo  ratingStore
}

type ServiceDeps struct {
	TenantRepo  principalStore
	AgentRepo   principalStore
	SessionRepo sessionStore
	HouseRepo   houseStore
	RatingRepo  ratingStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tenants:     deps.TenantRepo,
		agents:      deps.AgentRepo,
		sessionRepo: deps.SessionRepo,
		houseRepo:   deps.HouseRepo,
		ratingRepo:  deps.RatingRepo,
	}
}

func (s *service) repoFor(kind domain.Kind) principalStore {
	if kind == domain.KindAgent {
		return s.agents
	}
	return s.tenants
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest, currentSessionID string) (*domain.Principal, error) {
	if currentSessionID != "" {
		if sess, err := s.sessionRepo.Get(ctx, currentSessionID); err == nil && sess.Enable {
			return nil, fmt.Errorf("already logged in: %w", domain.ErrAlreadyAuthenticated)
		}
	}

	// One email owns at most one account across both tables.
	if _, err := s.tenants.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.agents.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	kind := domain.KindTenant
	if req.IsAgent != nil && *req.IsAgent {
		kind = domain.KindAgent
	}
	now := time.Now().UTC()
	p := &domain.Principal{
		PrincipalID:  id.New(),
		Kind:         kind,
		FirstName:    domain.TitleCase(req.FirstName),
		LastName:     domain.TitleCase(req.LastName),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Cart:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if kind == domain.KindAgent {
		p.Listings = []string{}
		p.Reviews = []domain.Review{}
	}
	if err := s.repoFor(kind).Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, kind domain.Kind, principalID string) (*domain.Principal, error) {
	return s.repoFor(kind).Get(ctx, principalID)
}

func (s *service) GetAgent(ctx context.Context, agentID string) (*AgentProfile, error) {
	a, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ProfileOf(a), nil
}

func (s *service) Update(ctx context.Context, kind domain.Kind, principalID string, req domain.UpdateProfileRequest) (*domain.Principal, error) {
	repo := s.repoFor(kind)
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates[fieldFirstName] = domain.TitleCase(*req.FirstName)
	}
	if req.LastName != nil {
		updates[fieldLastName] = domain.TitleCase(*req.LastName)
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if len(updates) == 0 {
		return repo.Get(ctx, principalID)
	}
	if err := repo.Update(ctx, principalID, updates); err != nil {
		return nil, err
	}
	return repo.Get(ctx, principalID)
}

// Delete removes the account and everything hanging off it: sessions always,
// and for agents also their listed houses and rating records.
func (s *service) Delete(ctx context.Context, kind domain.Kind, principalID string) error {
	repo := s.repoFor(kind)
	if _, err := repo.Get(ctx, principalID); err != nil {
		return err
	}

	if kind == domain.KindAgent {
		houses, err := s.houseRepo.ListByAgent(ctx, principalID)
		if err != nil {
			return fmt.Errorf("list houses for cascade: %w", err)
		}
		for _, h := range houses {
			if err := s.houseRepo.HardDelete(ctx, h.HouseID); err != nil {
				slog.Error("cascade house delete failed", "house_id", h.HouseID, "err", err)
				return err
			}
		}
		ratings, err := s.ratingRepo.ListByAgent(ctx, principalID)
		if err != nil {
			return fmt.Errorf("list ratings for cascade: %w", err)
		}
		for _, r := range ratings {
			if err := s.ratingRepo.HardDelete(ctx, r.RatingID); err != nil {
				slog.Error("cascade rating delete failed", "rating_id", r.RatingID, "err", err)
				return err
			}
		}
	}

	if err := s.sessionRepo.DisableByPrincipal(ctx, principalID); err != nil {
		slog.Warn("could not disable sessions on delete", "principal_id", principalID, "err", err)
	}
	return repo.HardDelete(ctx, principalID)
}

func (s *service) ChangePassword(ctx context.Context, kind domain.Kind, principalID, currentPassword, newPassword string) error {
	repo := s.repoFor(kind)
	p, err := repo.Get(ctx, principalID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password mismatch: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.Update(ctx, principalID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return err
	}
	// Existing sessions stop working once the password changes.
	if err := s.sessionRepo.DisableByPrincipal(ctx, principalID); err != nil {
		slog.Warn("could not disable sessions after password change", "principal_id", principalID, "err", err)
	}
	return nil
}
