// Package recovery implements time-boxed, single-use password recovery.
// Issue binds a fresh OTP code to the requesting principal; Redeem verifies
// the code, atomically consumes the binding and replaces the password.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/jobs"
	"golang.org/x/crypto/bcrypt"
)

type IssueRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type RedeemRequest struct {
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type Service interface {
	// Issue generates an OTP, binds it to the matched principal and emails
	// it. The code itself never appears in the response or the logs.
	Issue(ctx context.Context, req IssueRequest) error
	// Redeem validates the code, consumes its binding and resets the
	// password for the bound principal.
	Redeem(ctx context.Context, req RedeemRequest) error
}

type principalStore interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
	FindByIdentity(ctx context.Context, email, firstName, lastName string) (*domain.Principal, error)
	Update(ctx context.Context, principalID string, updates map[string]interface{}) error
}

type bindingStore interface {
	Put(ctx context.Context, b *domain.RecoveryBinding) error
	Consume(ctx context.Context, code string) (*domain.RecoveryBinding, error)
}

type sessionStore interface {
	DisableByPrincipal(ctx context.Context, principalID string) error
}

type codeGenerator interface {
	Issue() (string, error)
	Verify(code string) bool
}

type enqueuer interface {
	Enqueue(task *jobs.Task)
}

type service struct {
	tenants     principalStore
	agents      principalStore
	bindings    bindingStore
	sessionRepo sessionStore
	codes       codeGenerator
	queue       enqueuer
	now         func() time.Time
}

type ServiceDeps struct {
	TenantRepo  principalStore
	AgentRepo   principalStore
	BindingRepo bindingStore
	SessionRepo sessionStore
	Codes       codeGenerator
	Queue       enqueuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tenants:     deps.TenantRepo,
		agents:      deps.AgentRepo,
		bindings:    deps.BindingRepo,
		sessionRepo: deps.SessionRepo,
		codes:       deps.Codes,
		queue:       deps.Queue,
		now:         time.Now,
	}
}

func (s *service) Issue(ctx context.Context, req IssueRequest) error {
	first := domain.TitleCase(req.FirstName)
	last := domain.TitleCase(req.LastName)

	kind := domain.KindTenant
	p, err := s.tenants.FindByIdentity(ctx, req.Email, first, last)
	if errors.Is(err, domain.ErrNotFound) {
		kind = domain.KindAgent
		p, err = s.agents.FindByIdentity(ctx, req.Email, first, last)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no matching account: %w", domain.ErrNotFound)
		}
	}
	if err != nil {
		return fmt.Errorf("look up identity: %w", err)
	}

	code, err := s.codes.Issue()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	binding := &domain.RecoveryBinding{
		Code:      code,
		Principal: domain.BindPrincipal(kind, p.PrincipalID),
		ExpiresAt: s.now().Unix() + domain.RecoveryBindingTTLSeconds,
	}
	if err := s.bindings.Put(ctx, binding); err != nil {
		return fmt.Errorf("store binding: %w", err)
	}

	s.queue.Enqueue(jobs.NewTask(jobs.TaskRecoveryOTP, jobs.RecoveryOTPPayload{
		PrincipalID: p.PrincipalID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		Code:        code,
	}))
	slog.Info("recovery code issued", "principal_id", p.PrincipalID, "kind", kind)
	return nil
}

func (s *service) Redeem(ctx context.Context, req RedeemRequest) error {
	// Reject codes the generator never produced before touching storage.
	if !s.codes.Verify(req.Code) {
		return fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}

	// One winner per code: the binding is deleted in the same step it is
	// read, so a concurrent redeem of the same code loses here.
	binding, err := s.bindings.Consume(ctx, req.Code)
	if err != nil {
		return err
	}

	kind, principalID, ok := domain.SplitPrincipal(binding.Principal)
	if !ok {
		return fmt.Errorf("malformed binding %q: %w", binding.Principal, domain.ErrIntegrity)
	}
	repo := s.tenants
	if kind == domain.KindAgent {
		repo = s.agents
	}
	p, err := repo.Get(ctx, principalID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("bound principal missing: %w", domain.ErrAccountGone)
	}
	if err != nil {
		return fmt.Errorf("load bound principal: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.Update(ctx, p.PrincipalID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		// The binding is already gone, so the caller must restart the flow.
		return fmt.Errorf("replace password: %w", err)
	}
	if err := s.sessionRepo.DisableByPrincipal(ctx, p.PrincipalID); err != nil {
		slog.Warn("could not disable sessions after recovery", "principal_id", p.PrincipalID, "err", err)
	}
	slog.Info("password recovered", "principal_id", p.PrincipalID, "kind", kind)
	return nil
}
