package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/latent-app/latent-api/internal/application/principal"
	"github.com/latent-app/latent-api/internal/application/review"
	"github.com/latent-app/latent-api/internal/transport/http/middleware"
)

// AgentHandler serves the public agent profile and the review endpoint.
type AgentHandler struct {
	principals principal.Service
	reviews    review.Service
}

func NewAgentHandler(principals principal.Service, reviews review.Service) *AgentHandler {
	return &AgentHandler{principals: principals, reviews: reviews}
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.principals.GetAgent(r.Context(), chi.URLParam(r, "agentId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Review records or replaces the calling tenant's review of the agent.
func (h *AgentHandler) Review(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req review.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agent, err := h.reviews.Upsert(r.Context(), claims.PrincipalID, chi.URLParam(r, "agentId"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	// Reviewers get the same public projection as anyone else.
	writeJSON(w, http.StatusOK, principal.ProfileOf(agent))
}
