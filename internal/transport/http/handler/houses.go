package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/latent-app/latent-api/internal/application/house"
	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/validate"
	"github.com/latent-app/latent-api/internal/transport/http/middleware"
)

// HouseHandler handles listing CRUD, search, images and booking.
type HouseHandler struct {
	svc house.Service
}

func NewHouseHandler(svc house.Service) *HouseHandler { return &HouseHandler{svc: svc} }

func (h *HouseHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateHouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.Create(r.Context(), claims.PrincipalID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HouseHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.Get(r.Context(), chi.URLParam(r, "houseId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *HouseHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.HouseFilter{
		City:  q.Get("city"),
		State: q.Get("state"),
	}
	if v := q.Get("num_rooms"); v != "" {
		f.NumRooms, _ = strconv.Atoi(v)
	}
	if v := q.Get("min_price"); v != "" {
		f.MinPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("max_price"); v != "" {
		f.MaxPrice, _ = strconv.ParseFloat(v, 64)
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	houses, cursor, err := h.svc.Search(r.Context(), f, int32(limit), q.Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedHousesEnvelope{Data: houses, Cursor: cursor})
}

func (h *HouseHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateHouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.Update(r.Context(), claims.PrincipalID, chi.URLParam(r, "houseId"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *HouseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.PrincipalID, chi.URLParam(r, "houseId")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "house deleted"})
}

// UploadImage attaches a base64 image to the listing. ?cover=true targets
// the cover slot.
func (h *HouseHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Filename string `json:"filename" validate:"required"`
		Data     string `json:"data" validate:"required"` // base64
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cover := r.URL.Query().Get("cover") == "true"
	updated, err := h.svc.AttachImage(r.Context(), claims.PrincipalID, chi.URLParam(r, "houseId"), req.Filename, req.Data, cover)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Book registers the calling tenant's inspection interest in a house.
func (h *HouseHandler) Book(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Book(r.Context(), claims.PrincipalID, chi.URLParam(r, "houseId")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "inspection booked"})
}
