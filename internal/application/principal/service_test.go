package principal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockPrincipalStore struct{ mock.Mock }

func (m *mockPrincipalStore) Get(ctx context.Context, principalID string) (*domain.Principal, error) {
	args := m.Called(ctx, principalID)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPrincipalStore) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	args := m.Called(ctx, email)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPrincipalStore) Put(ctx context.Context, p *domain.Principal) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPrincipalStore) Update(ctx context.Context, principalID string, updates map[string]interface{}) error {
	return m.Called(ctx, principalID, updates).Error(0)
}
func (m *mockPrincipalStore) HardDelete(ctx context.Context, principalID string) error {
	return m.Called(ctx, principalID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) DisableByPrincipal(ctx context.Context, principalID string) error {
	return m.Called(ctx, principalID).Error(0)
}

type mockHouseStore struct{ mock.Mock }

func (m *mockHouseStore) ListByAgent(ctx context.Context, agentID string) ([]domain.House, error) {
	args := m.Called(ctx, agentID)
	if h, _ := args.Get(0).([]domain.House); h != nil {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHouseStore) HardDelete(ctx context.Context, houseID string) error {
	return m.Called(ctx, houseID).Error(0)
}

type mockRatingStore struct{ mock.Mock }

func (m *mockRatingStore) ListByAgent(ctx context.Context, agentID string) ([]domain.Rating, error) {
	args := m.Called(ctx, agentID)
	if r, _ := args.Get(0).([]domain.Rating); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRatingStore) HardDelete(ctx context.Context, ratingID string) error {
	return m.Called(ctx, ratingID).Error(0)
}

// --- helpers ---

func newSvc(tr, ar *mockPrincipalStore, ss *mockSessionStore, hs *mockHouseStore, rs *mockRatingStore) Service {
	return NewService(ServiceDeps{
		TenantRepo:  tr,
		AgentRepo:   ar,
		SessionRepo: ss,
		HouseRepo:   hs,
		RatingRepo:  rs,
	})
}

func boolPtr(b bool) *bool { return &b }

func registerReq(isAgent bool) domain.RegisterRequest {
	return domain.RegisterRequest{
		FirstName: "adaeze",
		LastName:  "OKAFOR",
		Email:     "adaeze@example.com",
		Password:  "long-enough-pw",
		IsAgent:   boolPtr(isAgent),
	}
}

// --- Register tests ---

func TestRegister_Tenant(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	tr.On("GetByEmail", mock.Anything, "adaeze@example.com").Return(nil, domain.ErrNotFound)
	ar.On("GetByEmail", mock.Anything, "adaeze@example.com").Return(nil, domain.ErrNotFound)
	tr.On("Put", mock.Anything, mock.AnythingOfType("*domain.Principal")).Return(nil)

	p, err := newSvc(tr, ar, ss, hs, rs).Register(context.Background(), registerReq(false), "")

	require.NoError(t, err)
	assert.Equal(t, domain.KindTenant, p.Kind)
	assert.Equal(t, "Adaeze", p.FirstName)
	assert.Equal(t, "Okafor", p.LastName)
	assert.Nil(t, p.Listings)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("long-enough-pw")))
	ar.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_AgentGetsEmptyListings(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	tr.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	ar.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	ar.On("Put", mock.Anything, mock.AnythingOfType("*domain.Principal")).Return(nil)

	p, err := newSvc(tr, ar, ss, hs, rs).Register(context.Background(), registerReq(true), "")

	require.NoError(t, err)
	assert.Equal(t, domain.KindAgent, p.Kind)
	assert.NotNil(t, p.Listings)
	assert.NotNil(t, p.Reviews)
	tr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_EmailCheckOutagePropagates(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	storeErr := errors.New("dynamo: connection refused")
	tr.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, storeErr)

	_, err := newSvc(tr, ar, ss, hs, rs).Register(context.Background(), registerReq(false), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
	tr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	ar.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_EmailTakenInOtherTable(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	// Registering as agent, but a tenant already owns the email.
	tr.On("GetByEmail", mock.Anything, "adaeze@example.com").Return(&domain.Principal{
		PrincipalID: "tenant-1", Email: "adaeze@example.com",
	}, nil)

	_, err := newSvc(tr, ar, ss, hs, rs).Register(context.Background(), registerReq(true), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	ar.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_AlreadyAuthenticated(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	ss.On("Get", mock.Anything, "sess-live").Return(&domain.Session{
		SessionID: "sess-live", Enable: true,
	}, nil)

	_, err := newSvc(tr, ar, ss, hs, rs).Register(context.Background(), registerReq(false), "sess-live")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyAuthenticated))
	tr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- GetAgent tests ---

func TestGetAgent_PublicViewWithMeanRating(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	ar.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
		FirstName: "Bode", LastName: "Ade", Email: "bode@example.com",
		Reviews: []domain.Review{
			{ReviewerID: "t1", Rating: 5},
			{ReviewerID: "t2", Rating: 3},
			{ReviewerID: "t3", Rating: 2},
		},
		RatingSum: 10, RatingCount: 3,
	}, nil)

	profile, err := newSvc(tr, ar, ss, hs, rs).GetAgent(context.Background(), "agent-1")

	require.NoError(t, err)
	assert.InDelta(t, 3.333, profile.Rating, 0.001)
	assert.Len(t, profile.Reviews, 3)
}

func TestGetAgent_NoReviewsMeansZeroRating(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	ar.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
	}, nil)

	profile, err := newSvc(tr, ar, ss, hs, rs).GetAgent(context.Background(), "agent-1")

	require.NoError(t, err)
	assert.Zero(t, profile.Rating)
	assert.NotNil(t, profile.Reviews)
}

func TestGetAgent_ProfileCarriesNoContactData(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	phone := "+2348000000000"
	ar.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
		FirstName: "Bode", LastName: "Ade",
		Email: "bode@example.com", Phone: &phone,
		PasswordHash: "$2a$10$notarealhash",
	}, nil)

	profile, err := newSvc(tr, ar, ss, hs, rs).GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)

	body, err := json.Marshal(profile)
	require.NoError(t, err)
	payload := strings.ToLower(string(body))
	assert.NotContains(t, payload, "bode@example.com")
	assert.NotContains(t, payload, phone)
	assert.NotContains(t, payload, "email")
	assert.NotContains(t, payload, "phone")
	assert.NotContains(t, payload, "hash")
	assert.NotNil(t, profile.Listings)
}

// --- Update tests ---

func TestUpdate_TitleCasesNames(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	first := "nKEM"
	tr.On("Update", mock.Anything, "tenant-1", map[string]interface{}{
		"first_name": "Nkem",
	}).Return(nil)
	tr.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{
		PrincipalID: "tenant-1", FirstName: "Nkem",
	}, nil)

	p, err := newSvc(tr, ar, ss, hs, rs).Update(context.Background(), domain.KindTenant, "tenant-1",
		domain.UpdateProfileRequest{FirstName: &first})

	require.NoError(t, err)
	assert.Equal(t, "Nkem", p.FirstName)
}

// --- Delete tests ---

func TestDelete_AgentCascades(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	ar.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
	}, nil)
	hs.On("ListByAgent", mock.Anything, "agent-1").Return([]domain.House{
		{HouseID: "house-1"}, {HouseID: "house-2"},
	}, nil)
	hs.On("HardDelete", mock.Anything, "house-1").Return(nil)
	hs.On("HardDelete", mock.Anything, "house-2").Return(nil)
	rs.On("ListByAgent", mock.Anything, "agent-1").Return([]domain.Rating{
		{RatingID: "rating-1"},
	}, nil)
	rs.On("HardDelete", mock.Anything, "rating-1").Return(nil)
	ss.On("DisableByPrincipal", mock.Anything, "agent-1").Return(nil)
	ar.On("HardDelete", mock.Anything, "agent-1").Return(nil)

	require.NoError(t, newSvc(tr, ar, ss, hs, rs).Delete(context.Background(), domain.KindAgent, "agent-1"))
	hs.AssertNumberOfCalls(t, "HardDelete", 2)
	rs.AssertNumberOfCalls(t, "HardDelete", 1)
	ar.AssertCalled(t, "HardDelete", mock.Anything, "agent-1")
}

func TestDelete_TenantSkipsAgentCascade(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	tr.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{
		PrincipalID: "tenant-1", Kind: domain.KindTenant,
	}, nil)
	ss.On("DisableByPrincipal", mock.Anything, "tenant-1").Return(nil)
	tr.On("HardDelete", mock.Anything, "tenant-1").Return(nil)

	require.NoError(t, newSvc(tr, ar, ss, hs, rs).Delete(context.Background(), domain.KindTenant, "tenant-1"))
	hs.AssertNotCalled(t, "ListByAgent", mock.Anything, mock.Anything)
}

func TestDelete_MissingAccount(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	tr.On("Get", mock.Anything, "tenant-x").Return(nil, domain.ErrNotFound)

	err := newSvc(tr, ar, ss, hs, rs).Delete(context.Background(), domain.KindTenant, "tenant-x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- ChangePassword tests ---

func TestChangePassword_WrongCurrent(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	hash, _ := bcrypt.GenerateFromPassword([]byte("real-password"), bcrypt.MinCost)
	tr.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{
		PrincipalID: "tenant-1", PasswordHash: string(hash),
	}, nil)

	err := newSvc(tr, ar, ss, hs, rs).ChangePassword(context.Background(),
		domain.KindTenant, "tenant-1", "guess", "new-password-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	tr.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_RehashesAndLogsOutSessions(t *testing.T) {
	tr, ar, ss, hs, rs := &mockPrincipalStore{}, &mockPrincipalStore{}, &mockSessionStore{}, &mockHouseStore{}, &mockRatingStore{}

	hash, _ := bcrypt.GenerateFromPassword([]byte("real-password"), bcrypt.MinCost)
	tr.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{
		PrincipalID: "tenant-1", PasswordHash: string(hash),
	}, nil)
	tr.On("Update", mock.Anything, "tenant-1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		newHash, ok := updates["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(newHash), []byte("new-password-1")) == nil
	})).Return(nil)
	ss.On("DisableByPrincipal", mock.Anything, "tenant-1").Return(nil)

	err := newSvc(tr, ar, ss, hs, rs).ChangePassword(context.Background(),
		domain.KindTenant, "tenant-1", "real-password", "new-password-1")

	require.NoError(t, err)
	ss.AssertCalled(t, "DisableByPrincipal", mock.Anything, "tenant-1")
}
