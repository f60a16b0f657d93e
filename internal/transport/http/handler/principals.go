package handler

import (
	"encoding/json"
	"net/http"

	"github.com/latent-app/latent-api/internal/application/principal"
	"github.com/latent-app/latent-api/internal/application/session"
	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/pkg/validate"
	"github.com/latent-app/latent-api/internal/transport/http/middleware"
)

// PrincipalHandler handles account endpoints for the calling principal.
type PrincipalHandler struct {
	svc      principal.Service
	sessions session.Service
}

func NewPrincipalHandler(svc principal.Service, sessions session.Service) *PrincipalHandler {
	return &PrincipalHandler{svc: svc, sessions: sessions}
}

// Register creates the account and signs the caller straight in.
func (h *PrincipalHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currentSessionID := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		currentSessionID = claims.SessionID
	}
	p, err := h.svc.Register(r.Context(), req, currentSessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	result, err := h.sessions.Open(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{Bearer: result.Bearer, Session: result.Session})
}

func (h *PrincipalHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, kind, ok := callerKind(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Get(r.Context(), kind, claims.PrincipalID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PrincipalHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, kind, ok := callerKind(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), kind, claims.PrincipalID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PrincipalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, kind, ok := callerKind(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), kind, claims.PrincipalID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}

func (h *PrincipalHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, kind, ok := callerKind(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ChangePassword(r.Context(), kind, claims.PrincipalID, req.CurrentPassword, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}

// callerKind pulls claims off the request and decodes the kind tag.
func callerKind(r *http.Request) (*claimsView, domain.Kind, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, "", false
	}
	kind, ok := domain.ParseKind(claims.Kind)
	if !ok {
		return nil, "", false
	}
	return &claimsView{PrincipalID: claims.PrincipalID, SessionID: claims.SessionID}, kind, true
}

type claimsView struct {
	PrincipalID string
	SessionID   string
}
