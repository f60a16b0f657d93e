package house

import (
	"context"
	"errors"
	"testing"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockHouseStore struct{ mock.Mock }

func (m *mockHouseStore) Put(ctx context.Context, h *domain.House) error {
	return m.Called(ctx, h).Error(0)
}
func (m *mockHouseStore) Get(ctx context.Context, houseID string) (*domain.House, error) {
	args := m.Called(ctx, houseID)
	if h, _ := args.Get(0).(*domain.House); h != nil {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHouseStore) Update(ctx context.Context, houseID string, updates map[string]interface{}) error {
	return m.Called(ctx, houseID, updates).Error(0)
}
func (m *mockHouseStore) HardDelete(ctx context.Context, houseID string) error {
	return m.Called(ctx, houseID).Error(0)
}
func (m *mockHouseStore) Search(ctx context.Context, f domain.HouseFilter, limit int32, cursor string) ([]domain.House, string, error) {
	args := m.Called(ctx, f, limit, cursor)
	if h, _ := args.Get(0).([]domain.House); h != nil {
		return h, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

type mockPrincipalStore struct{ mock.Mock }

func (m *mockPrincipalStore) Get(ctx context.Context, principalID string) (*domain.Principal, error) {
	args := m.Called(ctx, principalID)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPrincipalStore) AppendList(ctx context.Context, principalID, attr, value string) error {
	return m.Called(ctx, principalID, attr, value).Error(0)
}
func (m *mockPrincipalStore) RemoveListElem(ctx context.Context, principalID, attr string, idx int) error {
	return m.Called(ctx, principalID, attr, idx).Error(0)
}

type mockImageStore struct{ mock.Mock }

func (m *mockImageStore) UploadBase64(ctx context.Context, key, b64Data string) (string, error) {
	args := m.Called(ctx, key, b64Data)
	return args.String(0), args.Error(1)
}
func (m *mockImageStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) Enqueue(task *jobs.Task) {
	m.Called(task)
}

// --- helpers ---

type deps struct {
	houses  *mockHouseStore
	tenants *mockPrincipalStore
	agents  *mockPrincipalStore
	images  *mockImageStore
	queue   *mockQueue
}

func newDeps() deps {
	return deps{
		houses:  &mockHouseStore{},
		tenants: &mockPrincipalStore{},
		agents:  &mockPrincipalStore{},
		images:  &mockImageStore{},
		queue:   &mockQueue{},
	}
}

func (d deps) svc() Service {
	return NewService(ServiceDeps{
		HouseRepo:  d.houses,
		TenantRepo: d.tenants,
		AgentRepo:  d.agents,
		ImageStore: d.images,
		Queue:      d.queue,
	})
}

func createReq() domain.CreateHouseRequest {
	return domain.CreateHouseRequest{
		Name:        "Marina Duplex",
		Description: "2 bed flat",
		Location:    domain.Location{Country: "Nigeria", State: "Lagos", City: "Ikoyi"},
		Address:     "12 Marina Rd",
		HouseType:   "duplex",
		Price:       350000,
		NumRooms:    2,
		NumFloors:   1,
	}
}

func listedHouse() *domain.House {
	return &domain.House{
		HouseID: "house-1", AgentID: "agent-1",
		Address: "12 Marina Rd", Description: "2 bed flat",
		Images: []string{"houses/house-1/old.jpg"},
	}
}

// --- tests ---

func TestCreate_StoresHouseAndAppendsListing(t *testing.T) {
	d := newDeps()

	d.agents.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
	}, nil)
	d.houses.On("Put", mock.Anything, mock.MatchedBy(func(h *domain.House) bool {
		return h.AgentID == "agent-1" && h.Name == "Marina Duplex" && h.HouseID != ""
	})).Return(nil)
	d.agents.On("AppendList", mock.Anything, "agent-1", "listings", mock.Anything).Return(nil)

	h, err := d.svc().Create(context.Background(), "agent-1", createReq())

	require.NoError(t, err)
	assert.NotEmpty(t, h.HouseID)
	d.agents.AssertCalled(t, "AppendList", mock.Anything, "agent-1", "listings", h.HouseID)
}

func TestCreate_UnknownAgent(t *testing.T) {
	d := newDeps()

	d.agents.On("Get", mock.Anything, "agent-x").Return(nil, domain.ErrNotFound)

	_, err := d.svc().Create(context.Background(), "agent-x", createReq())

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	d.houses.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUpdate_OtherAgentsHouseForbidden(t *testing.T) {
	d := newDeps()

	d.houses.On("Get", mock.Anything, "house-1").Return(listedHouse(), nil)

	name := "Renamed"
	_, err := d.svc().Update(context.Background(), "agent-2", "house-1",
		domain.UpdateHouseRequest{Name: &name})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	d.houses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_DefaultsLimit(t *testing.T) {
	d := newDeps()

	f := domain.HouseFilter{City: "Ikoyi", MaxPrice: 500000}
	d.houses.On("Search", mock.Anything, f, int32(20), "").Return([]domain.House{}, "", nil)

	_, _, err := d.svc().Search(context.Background(), f, 0, "")

	require.NoError(t, err)
	d.houses.AssertExpectations(t)
}

func TestDelete_RemovesImagesToo(t *testing.T) {
	d := newDeps()

	h := listedHouse()
	h.CoverImage = "houses/house-1/cover.jpg"
	d.houses.On("Get", mock.Anything, "house-1").Return(h, nil)
	d.images.On("Delete", mock.Anything, "houses/house-1/old.jpg").Return(nil)
	d.images.On("Delete", mock.Anything, "houses/house-1/cover.jpg").Return(nil)
	d.houses.On("HardDelete", mock.Anything, "house-1").Return(nil)
	d.agents.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent, Listings: []string{"house-1"},
	}, nil)
	d.agents.On("RemoveListElem", mock.Anything, "agent-1", "listings", 0).Return(nil)

	require.NoError(t, d.svc().Delete(context.Background(), "agent-1", "house-1"))
	d.images.AssertNumberOfCalls(t, "Delete", 2)
}

func TestDelete_DetachesFromAgentListings(t *testing.T) {
	d := newDeps()

	d.houses.On("Get", mock.Anything, "house-1").Return(listedHouse(), nil)
	d.images.On("Delete", mock.Anything, mock.Anything).Return(nil)
	d.houses.On("HardDelete", mock.Anything, "house-1").Return(nil)
	d.agents.On("Get", mock.Anything, "agent-1").Return(&domain.Principal{
		PrincipalID: "agent-1", Kind: domain.KindAgent,
		Listings: []string{"house-0", "house-1", "house-2"},
	}, nil)
	d.agents.On("RemoveListElem", mock.Anything, "agent-1", "listings", 1).Return(nil)

	require.NoError(t, d.svc().Delete(context.Background(), "agent-1", "house-1"))
	d.agents.AssertCalled(t, "RemoveListElem", mock.Anything, "agent-1", "listings", 1)
}

func TestDelete_HardDeleteFailureSkipsDetach(t *testing.T) {
	d := newDeps()

	d.houses.On("Get", mock.Anything, "house-1").Return(listedHouse(), nil)
	d.images.On("Delete", mock.Anything, mock.Anything).Return(nil)
	d.houses.On("HardDelete", mock.Anything, "house-1").Return(errors.New("dynamo unavailable"))

	err := d.svc().Delete(context.Background(), "agent-1", "house-1")

	require.Error(t, err)
	d.agents.AssertNotCalled(t, "RemoveListElem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachImage_CoverSlot(t *testing.T) {
	d := newDeps()

	d.houses.On("Get", mock.Anything, "house-1").Return(listedHouse(), nil)
	d.images.On("UploadBase64", mock.Anything, mock.MatchedBy(func(key string) bool {
		return len(key) > 0
	}), "aW1hZ2U=").Return("houses/house-1/key", nil)
	d.houses.On("Update", mock.Anything, "house-1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		_, ok := updates["cover_image"]
		return ok
	})).Return(nil)

	_, err := d.svc().AttachImage(context.Background(), "agent-1", "house-1", "front.jpg", "aW1hZ2U=", true)

	require.NoError(t, err)
}

func TestBook_AppendsCartAndEnqueues(t *testing.T) {
	d := newDeps()

	d.tenants.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{
		PrincipalID: "tenant-1", Kind: domain.KindTenant,
	}, nil)
	d.houses.On("Get", mock.Anything, "house-1").Return(listedHouse(), nil)
	d.tenants.On("AppendList", mock.Anything, "tenant-1", "cart", "house-1").Return(nil)
	d.queue.On("Enqueue", mock.MatchedBy(func(task *jobs.Task) bool {
		p, ok := task.Payload.(jobs.BookingPayload)
		return ok && p.TenantID == "tenant-1" && p.AgentID == "agent-1" && p.HouseAddress == "12 Marina Rd"
	})).Return()

	require.NoError(t, d.svc().Book(context.Background(), "tenant-1", "house-1"))
	d.queue.AssertExpectations(t)
}

func TestBook_UnknownHouse(t *testing.T) {
	d := newDeps()

	d.tenants.On("Get", mock.Anything, "tenant-1").Return(&domain.Principal{PrincipalID: "tenant-1"}, nil)
	d.houses.On("Get", mock.Anything, "house-x").Return(nil, domain.ErrNotFound)

	err := d.svc().Book(context.Background(), "tenant-1", "house-x")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	d.queue.AssertNotCalled(t, "Enqueue", mock.Anything)
}
