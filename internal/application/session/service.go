package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Bearer  string
	Session *domain.Session
}

type Service interface {
	// Login authenticates against the tenant table first and falls back to
	// the agent table. currentSessionID is the caller's session id when the
	// request already carried a valid token, empty otherwise.
	Login(ctx context.Context, req LoginRequest, currentSessionID string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)

	// Open issues a session for an already-verified principal. Used by
	// registration and recovery flows that must not re-check the password.
	Open(ctx context.Context, p *domain.Principal) (*LoginResult, error)
}

type principalStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type jwtSigner interface {
	Sign(principalID, kind, email, sessionID string) (string, error)
}

type service struct {
	tenants     principalStore
	agents      principalStore
	sessionRepo sessionStore
	jwtProvider jwtSigner
}

type ServiceDeps struct {
	TenantRepo  principalStore
	AgentRepo   principalStore
	SessionRepo sessionStore
	JWTProvider jwtSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tenants:     deps.TenantRepo,
		agents:      deps.AgentRepo,
		sessionRepo: deps.SessionRepo,
		jwtProvider: deps.JWTProvider,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest, currentSessionID string) (*LoginResult, error) {
	if currentSessionID != "" {
		if sess, err := s.sessionRepo.Get(ctx, currentSessionID); err == nil && sess.Enable {
			return nil, fmt.Errorf("already logged in: %w", domain.ErrAlreadyAuthenticated)
		}
	}

	p, err := s.tenants.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = s.agents.GetByEmail(ctx, req.Email)
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown email and wrong password read the same to the caller.
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("look up principal: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.Open(ctx, p)
}

func (s *service) Open(ctx context.Context, p *domain.Principal) (*LoginResult, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:   id.New(),
		PrincipalID: p.PrincipalID,
		Kind:        p.Kind,
		Email:       p.Email,
		Enable:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(p.PrincipalID, string(p.Kind), p.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Principal = p
	return &LoginResult{Bearer: bearer, Session: sess}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	repo := s.tenants
	if sess.Kind == domain.KindAgent {
		repo = s.agents
	}
	p, err := repo.Get(ctx, sess.PrincipalID)
	if err != nil {
		return nil, err
	}
	sess.Principal = p
	return sess, nil
}
