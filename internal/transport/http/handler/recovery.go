package handler

import (
	"encoding/json"
	"net/http"

	"github.com/latent-app/latent-api/internal/application/recovery"
	"github.com/latent-app/latent-api/internal/pkg/validate"
)

// RecoveryHandler handles the password recovery endpoints.
type RecoveryHandler struct {
	svc recovery.Service
}

func NewRecoveryHandler(svc recovery.Service) *RecoveryHandler {
	return &RecoveryHandler{svc: svc}
}

// Issue sends a recovery code to the account matching the submitted identity.
func (h *RecoveryHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req recovery.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Issue(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "recovery code sent"})
}

// Redeem exchanges a valid recovery code for a new password.
func (h *RecoveryHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req recovery.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Redeem(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}
