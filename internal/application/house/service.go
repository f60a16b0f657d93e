package house

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/jobs"
	"github.com/latent-app/latent-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldAddress     = "address"
	fieldHouseType   = "house_type"
	fieldPrice       = "price"
	fieldNumRooms    = "num_rooms"
	fieldShared      = "shared"
	fieldWater       = "water"
	fieldElectricity = "electricity"
	fieldCoverImage  = "cover_image"
	fieldImages      = "images"
)

type Service interface {
	Create(ctx context.Context, agentID string, req domain.CreateHouseRequest) (*domain.House, error)
	Get(ctx context.Context, houseID string) (*domain.House, error)
	Search(ctx context.Context, f domain.HouseFilter, limit int32, cursor string) ([]domain.House, string, error)
	Update(ctx context.Context, agentID, houseID string, req domain.UpdateHouseRequest) (*domain.House, error)
	Delete(ctx context.Context, agentID, houseID string) error

	// AttachImage uploads base64 image data to S3 and records the object
	// key on the listing. cover selects the cover slot over the gallery.
	AttachImage(ctx context.Context, agentID, houseID, filename, b64Data string, cover bool) (*domain.House, error)
	// Book registers a tenant's inspection interest: the house lands in the
	// tenant's cart and both parties are notified off the request path.
	Book(ctx context.Context, tenantID, houseID string) error
}

type houseStore interface {
	Put(ctx context.Context, h *domain.House) error
	Get(ctx context.Context, houseID string) (*domain.House, error)
	Update(ctx context.Context, houseID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, houseID string) error
	Search(ctx context.Context, f domain.HouseFilter, limit int32, cursor string) ([]domain.House, string, error)
}

type principalStore interface {
	Get(ctx context.Context, principalID string) (*domain.Principal, error)
	AppendList(ctx context.Context, principalID, attr, value string) error
	RemoveListElem(ctx context.Context, principalID, attr string, idx int) error
}

type imageStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	Delete(ctx context.Context, key string) error
}

type enqueuer interface {
	Enqueue(task *jobs.Task)
}

type service struct {
	houses  houseStore
	tenants principalStore
	agents  principalStore
	images  imageStore
	queue   enqueuer
}

type ServiceDeps struct {
	HouseRepo  houseStore
	TenantRepo principalStore
	AgentRepo  principalStore
	ImageStore imageStore
	Queue      enqueuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		houses:  deps.HouseRepo,
		tenants: deps.TenantRepo,
		agents:  deps.AgentRepo,
		images:  deps.ImageStore,
		queue:   deps.Queue,
	}
}

func (s *service) Create(ctx context.Context, agentID string, req domain.CreateHouseRequest) (*domain.House, error) {
	if _, err := s.agents.Get(ctx, agentID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	h := &domain.House{
		HouseID:      id.New(),
		AgentID:      agentID,
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		Address:      req.Address,
		HouseType:    req.HouseType,
		Price:        req.Price,
		NumRooms:     req.NumRooms,
		NumBathrooms: req.NumBathrooms,
		NumToilets:   req.NumToilets,
		NumFloors:    req.NumFloors,
		Shared:       req.Shared,
		Water:        req.Water,
		Electricity:  req.Electricity,
		Images:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.houses.Put(ctx, h); err != nil {
		return nil, err
	}
	if err := s.agents.AppendList(ctx, agentID, "listings", h.HouseID); err != nil {
		slog.Warn("could not append listing to agent", "agent_id", agentID, "house_id", h.HouseID, "err", err)
	}
	return h, nil
}

func (s *service) Get(ctx context.Context, houseID string) (*domain.House, error) {
	return s.houses.Get(ctx, houseID)
}

func (s *service) Search(ctx context.Context, f domain.HouseFilter, limit int32, cursor string) ([]domain.House, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.houses.Search(ctx, f, limit, cursor)
}

func (s *service) Update(ctx context.Context, agentID, houseID string, req domain.UpdateHouseRequest) (*domain.House, error) {
	if _, err := s.owned(ctx, agentID, houseID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.Address != nil {
		updates[fieldAddress] = *req.Address
	}
	if req.HouseType != nil {
		updates[fieldHouseType] = *req.HouseType
	}
	if req.Price != nil {
		updates[fieldPrice] = *req.Price
	}
	if req.NumRooms != nil {
		updates[fieldNumRooms] = *req.NumRooms
	}
	if req.Shared != nil {
		updates[fieldShared] = *req.Shared
	}
	if req.Water != nil {
		updates[fieldWater] = *req.Water
	}
	if req.Electricity != nil {
		updates[fieldElectricity] = *req.Electricity
	}
	if len(updates) == 0 {
		return s.houses.Get(ctx, houseID)
	}
	if err := s.houses.Update(ctx, houseID, updates); err != nil {
		return nil, err
	}
	return s.houses.Get(ctx, houseID)
}

func (s *service) Delete(ctx context.Context, agentID, houseID string) error {
	h, err := s.owned(ctx, agentID, houseID)
	if err != nil {
		return err
	}
	for _, key := range append(h.Images, h.CoverImage) {
		if key == "" {
			continue
		}
		if err := s.images.Delete(ctx, key); err != nil {
			slog.Warn("could not delete house image", "house_id", houseID, "key", key, "err", err)
		}
	}
	if err := s.houses.HardDelete(ctx, houseID); err != nil {
		return err
	}
	s.detachListing(ctx, agentID, houseID)
	return nil
}

// detachListing removes the house from the agent's listings, undoing what
// Create appended. The house row is already gone, so a failure here only
// leaves a dangling id behind and is logged rather than surfaced.
func (s *service) detachListing(ctx context.Context, agentID, houseID string) {
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		slog.Warn("could not load agent to detach listing", "agent_id", agentID, "house_id", houseID, "err", err)
		return
	}
	for i, listed := range agent.Listings {
		if listed == houseID {
			if err := s.agents.RemoveListElem(ctx, agentID, "listings", i); err != nil {
				slog.Warn("could not detach listing", "agent_id", agentID, "house_id", houseID, "err", err)
			}
			return
		}
	}
}

func (s *service) AttachImage(ctx context.Context, agentID, houseID, filename, b64Data string, cover bool) (*domain.House, error) {
	h, err := s.owned(ctx, agentID, houseID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("houses/%s/%s-%s", houseID, id.New(), filename)
	if _, err := s.images.UploadBase64(ctx, key, b64Data); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if cover {
		err = s.houses.Update(ctx, houseID, map[string]interface{}{fieldCoverImage: key})
	} else {
		err = s.houses.Update(ctx, houseID, map[string]interface{}{fieldImages: append(h.Images, key)})
	}
	if err != nil {
		return nil, err
	}
	return s.houses.Get(ctx, houseID)
}

func (s *service) Book(ctx context.Context, tenantID, houseID string) error {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return err
	}
	h, err := s.houses.Get(ctx, houseID)
	if err != nil {
		return err
	}
	if err := s.tenants.AppendList(ctx, tenantID, "cart", houseID); err != nil {
		return err
	}
	s.queue.Enqueue(jobs.NewTask(jobs.TaskBooking, jobs.BookingPayload{
		TenantID:         tenantID,
		AgentID:          h.AgentID,
		HouseAddress:     h.Address,
		HouseDescription: h.Description,
	}))
	return nil
}

// owned loads the house and checks the caller lists it.
func (s *service) owned(ctx context.Context, agentID, houseID string) (*domain.House, error) {
	h, err := s.houses.Get(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if h.AgentID != agentID {
		return nil, fmt.Errorf("house %s not listed by caller: %w", houseID, domain.ErrForbidden)
	}
	return h, nil
}
