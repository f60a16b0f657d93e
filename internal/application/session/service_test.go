package session

import (
	"context"
	"errors"
	"testing"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockPrincipalStore struct{ mock.Mock }

func (m *mockPrincipalStore) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	args := m.Called(ctx, email)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPrincipalStore) Get(ctx context.Context, principalID string) (*domain.Principal, error) {
	args := m.Called(ctx, principalID)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(principalID, kind, email, sessionID string) (string, error) {
	args := m.Called(principalID, kind, email, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newSvc(tr, ar *mockPrincipalStore, ss *mockSessionStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		TenantRepo:  tr,
		AgentRepo:   ar,
		SessionRepo: ss,
		JWTProvider: jwt,
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func tenantAda(t *testing.T) *domain.Principal {
	return &domain.Principal{
		PrincipalID:  "tenant-1",
		Kind:         domain.KindTenant,
		FirstName:    "Ada",
		Email:        "ada@example.com",
		PasswordHash: hashOf(t, "s3cret-pass"),
	}
}

// --- Login tests ---

func TestLogin_TenantByEmail(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	tr.On("GetByEmail", mock.Anything, "ada@example.com").Return(tenantAda(t), nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "tenant-1", "Tenant", "ada@example.com", mock.Anything).Return("bearer", nil)

	result, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}, "")

	require.NoError(t, err)
	assert.Equal(t, "bearer", result.Bearer)
	assert.Equal(t, domain.KindTenant, result.Session.Kind)
	assert.Equal(t, "Ada", result.Session.Principal.FirstName)
	ar.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_FallsBackToAgentTable(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	agent := tenantAda(t)
	agent.PrincipalID = "agent-1"
	agent.Kind = domain.KindAgent

	tr.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, domain.ErrNotFound)
	ar.On("GetByEmail", mock.Anything, "ada@example.com").Return(agent, nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "agent-1", "Agent", "ada@example.com", mock.Anything).Return("bearer", nil)

	result, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}, "")

	require.NoError(t, err)
	assert.Equal(t, domain.KindAgent, result.Session.Kind)
}

func TestLogin_UnknownEmail(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	tr.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	ar.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	_, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "nobody@example.com", Password: "whatever"}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_StoreOutageIsNotBadCredentials(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	storeErr := errors.New("dynamo: connection refused")
	tr.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, storeErr)

	_, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
	ar.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_WrongPassword(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	tr.On("GetByEmail", mock.Anything, "ada@example.com").Return(tenantAda(t), nil)

	_, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "wrong"}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_AlreadyAuthenticated(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	ss.On("Get", mock.Anything, "sess-live").Return(&domain.Session{
		SessionID: "sess-live", PrincipalID: "tenant-1", Enable: true,
	}, nil)

	_, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}, "sess-live")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyAuthenticated))
	// the live session is left untouched and no new one is created
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_StaleSessionDoesNotBlock(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	ss.On("Get", mock.Anything, "sess-old").Return(&domain.Session{
		SessionID: "sess-old", Enable: false,
	}, nil)
	tr.On("GetByEmail", mock.Anything, "ada@example.com").Return(tenantAda(t), nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("bearer", nil)

	result, err := newSvc(tr, ar, ss, jwt).Login(context.Background(),
		LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}, "sess-old")

	require.NoError(t, err)
	assert.NotEqual(t, "sess-old", result.Session.SessionID)
}

// --- Logout / GetCurrent tests ---

func TestLogout_DisablesSession(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	ss.On("Update", mock.Anything, "sess-1", map[string]interface{}{"enable": false}).Return(nil)

	require.NoError(t, newSvc(tr, ar, ss, jwt).Logout(context.Background(), "sess-1"))
	ss.AssertExpectations(t)
}

func TestGetCurrent_LoadsPrincipalForKind(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	ss.On("Get", mock.Anything, "sess-1").Return(&domain.Session{
		SessionID: "sess-1", PrincipalID: "agent-1", Kind: domain.KindAgent, Enable: true,
	}, nil)
	ar.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent, FirstName: "Bode",
	}, nil)

	sess, err := newSvc(tr, ar, ss, jwt).GetCurrent(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "Bode", sess.Principal.FirstName)
	tr.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGetCurrent_DisabledSessionRejected(t *testing.T) {
	tr, ar, ss, jwt := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockJWTSigner{}

	ss.On("Get", mock.Anything, "sess-1").Return(&domain.Session{
		SessionID: "sess-1", Enable: false,
	}, nil)

	_, err := newSvc(tr, ar, ss, jwt).GetCurrent(context.Background(), "sess-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
