package rewrite

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/tonetuner/tonetuner/internal/api"
)

const retryAfterSeconds = 5

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Rewrite serves POST /api/v1/rewrite. The body is the bare Response.
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrMissingFields)
		return
	}

	resp, err := h.svc.Rewrite(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoText):
			api.HandleError(w, api.ErrMissingFields)
		case errors.Is(err, ErrQuotaExceeded):
			api.HandleError(w, api.ErrQuotaExceeded)
		case errors.Is(err, ErrQueueFull):
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			api.HandleError(w, api.ErrServiceBusy)
		default:
			slog.Error("rewrite failed", "error", err, "telegram_id", req.TelegramID, "tone", req.Tone)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSONBody(w, http.StatusOK, resp)
}
