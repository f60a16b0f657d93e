package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/id"
)

// RecoveryOTPPayload carries what the recovery email needs. The code is held
// in memory only for the lifetime of the task and is never persisted.
type RecoveryOTPPayload struct {
	PrincipalID string
	Email       string
	FirstName   string
	Code        string
}

// BookingPayload carries a booking request for inspection emails.
type BookingPayload struct {
	TenantID         string
	AgentID          string
	HouseAddress     string
	HouseDescription string
}

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender sends SMS messages. May be nil when SMS dispatch is disabled.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// PrincipalGetter loads a principal by id.
type PrincipalGetter interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
}

// NotificationRecorder persists dispatch records.
type NotificationRecorder interface {
	Put(ctx context.Context, n *domain.Notification) error
	SetStatus(ctx context.Context, notificationID, status, detail string) error
}

// Dispatcher turns queued tasks into emails, SMS messages and dispatch
// records.
type Dispatcher struct {
	mailer        Mailer
	sms           SMSSender
	tenants       PrincipalGetter
	agents        PrincipalGetter
	notifications NotificationRecorder
}

func NewDispatcher(mailer Mailer, sms SMSSender, tenants, agents PrincipalGetter, notifications NotificationRecorder) *Dispatcher {
	return &Dispatcher{
		mailer:        mailer,
		sms:           sms,
		tenants:       tenants,
		agents:        agents,
		notifications: notifications,
	}
}

// Handle routes a task to its processor. Wired as the queue's Handler.
func (d *Dispatcher) Handle(ctx context.Context, task *Task) error {
	switch task.Kind {
	case TaskRecoveryOTP:
		payload, ok := task.Payload.(RecoveryOTPPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type for %s", task.Kind)
		}
		return d.sendRecoveryOTP(ctx, payload)
	case TaskBooking:
		payload, ok := task.Payload.(BookingPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type for %s", task.Kind)
		}
		return d.sendBooking(ctx, payload)
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (d *Dispatcher) sendRecoveryOTP(ctx context.Context, p RecoveryOTPPayload) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"This is your one-time password for resetting your Latent login password:\r\n\r\n"+
			"\t%s\r\n\r\n"+
			"It is valid for 10 minutes and can be used once.\r\n\r\n"+
			"Thank you for choosing Latent for your housing needs.",
		p.FirstName, p.Code)

	return d.dispatch(ctx, p.PrincipalID, domain.NotificationRecoveryOTP, "Password reset", func() error {
		return d.mailer.SendEmail(p.Email, "Password reset", body)
	})
}

func (d *Dispatcher) sendBooking(ctx context.Context, p BookingPayload) error {
	tenant, err := d.tenants.Get(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	agent, err := d.agents.Get(ctx, p.AgentID)
	if err != nil {
		return fmt.Errorf("load agent: %w", err)
	}

	agentContact := "not on file"
	if agent.Phone != nil {
		agentContact = *agent.Phone
	}

	tenantBody := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"You have indicated interest in inspecting a house listed by %s.\r\n\r\n"+
			"Address: %s\r\n"+
			"Description: %s\r\n"+
			"Agent's contact: %s\r\n\r\n"+
			"Please kindly contact the agent.\r\n\r\n"+
			"Thank you for choosing Latent for your housing services.",
		tenant.FirstName, agent.FirstName, p.HouseAddress, p.HouseDescription, agentContact)

	agentBody := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"A potential tenant by the name of %s is interested in your house.\r\n\r\n"+
			"Address: %s\r\n"+
			"Description: %s\r\n\r\n"+
			"Your contact has been shared with the tenant.\r\n\r\n"+
			"Thank you for choosing Latent for your housing services.",
		agent.FirstName, tenant.FirstName, p.HouseAddress, p.HouseDescription)

	err = d.dispatch(ctx, tenant.PrincipalID, domain.NotificationBooking, "House inspection", func() error {
		return d.mailer.SendEmail(tenant.Email, "House inspection", tenantBody)
	})
	if err != nil {
		return err
	}
	err = d.dispatch(ctx, agent.PrincipalID, domain.NotificationBooking, "House inspection", func() error {
		return d.mailer.SendEmail(agent.Email, "House inspection", agentBody)
	})
	if err != nil {
		return err
	}

	if d.sms != nil && agent.Phone != nil {
		smsBody := fmt.Sprintf("Latent: %s wants to inspect your house at %s. Check your email for details.",
			tenant.FirstName, p.HouseAddress)
		return d.dispatch(ctx, agent.PrincipalID, domain.NotificationBooking, "House inspection SMS", func() error {
			return d.sms.SendSMS(ctx, *agent.Phone, smsBody)
		})
	}
	return nil
}

// dispatch records the attempt, runs send, and stores the outcome.
func (d *Dispatcher) dispatch(ctx context.Context, principalID, kind, subject string, send func() error) error {
	n := &domain.Notification{
		NotificationID: id.New(),
		PrincipalID:    principalID,
		Kind:           kind,
		Subject:        subject,
		Status:         domain.NotificationPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := d.notifications.Put(ctx, n); err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	if err := send(); err != nil {
		if serr := d.notifications.SetStatus(ctx, n.NotificationID, domain.NotificationFailed, err.Error()); serr != nil {
			return fmt.Errorf("mark dispatch failed: %w", serr)
		}
		return err
	}
	return d.notifications.SetStatus(ctx, n.NotificationID, domain.NotificationSent, "")
}
