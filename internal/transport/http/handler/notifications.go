package handler

import (
	"context"
	"net/http"

	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/transport/http/middleware"
)

type notificationLister interface {
	ListByPrincipal(ctx context.Context, principalID string) ([]domain.Notification, error)
}

// NotificationHandler exposes a principal's dispatch records.
type NotificationHandler struct {
	repo notificationLister
}

func NewNotificationHandler(repo notificationLister) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notifications, err := h.repo.ListByPrincipal(r.Context(), claims.PrincipalID)
	if err != nil {
		httpError(w, err)
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}
