package quota

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tonetuner/tonetuner/internal/api"
)

// ReferralLinker builds the invite link for a user. *users.Service
// satisfies it.
type ReferralLinker interface {
	ReferralLink(telegramID string) string
}

// ReferralPublisher announces new referrals. It may be nil.
type ReferralPublisher interface {
	PublishReferralCreated(ctx context.Context, inviterID, invitedID string) error
}

type Handler struct {
	limiter   *Limiter
	links     ReferralLinker
	publisher ReferralPublisher
	validate  *validator.Validate
}

func NewHandler(limiter *Limiter, links ReferralLinker, publisher ReferralPublisher) *Handler {
	return &Handler{
		limiter:   limiter,
		links:     links,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// GetQuota returns the submitter's limits and invite link.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	telegramID := chi.URLParam(r, "telegramId")
	if telegramID == "" {
		api.HandleError(w, api.NewBadRequestError("telegramId is required"))
		return
	}

	limits, err := h.limiter.GetLimits(r.Context(), telegramID)
	if err != nil {
		slog.Error("getting limits", "error", err, "telegram_id", telegramID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, QuotaResponse{
		Limits:       *limits,
		ReferralLink: h.links.ReferralLink(telegramID),
	})
}

// AddReferral links an invited user to their inviter.
func (h *Handler) AddReferral(w http.ResponseWriter, r *http.Request) {
	var req ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	created, err := h.limiter.AddReferral(r.Context(), req.InviterID, req.InvitedID)
	if err != nil {
		if errors.Is(err, ErrSelfReferral) {
			api.HandleError(w, api.NewBadRequestError(err.Error()))
			return
		}
		slog.Error("adding referral", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if created && h.publisher != nil {
		if err := h.publisher.PublishReferralCreated(r.Context(), req.InviterID, req.InvitedID); err != nil {
			slog.Warn("publishing referral event", "error", err)
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	api.JSON(w, status, map[string]bool{"created": created})
}
