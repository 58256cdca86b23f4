package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tonetuner/tonetuner/internal/api"
)

type State struct {
	Message            *string `json:"message"`
	AwaitingCustomTone bool    `json:"awaitingCustomTone"`
}

type SetMessageRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type SetCustomToneRequest struct {
	Awaiting bool `json:"awaiting"`
}

type Handler struct {
	store    Store
	validate *validator.Validate
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, validate: validator.New()}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "telegramId")

	text, ok, err := h.store.Message(r.Context(), id)
	if err != nil {
		slog.Error("reading session message", "error", err, "telegram_id", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	awaiting, err := h.store.AwaitingCustomTone(r.Context(), id)
	if err != nil {
		slog.Error("reading session tone flag", "error", err, "telegram_id", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	state := State{AwaitingCustomTone: awaiting}
	if ok {
		state.Message = &text
	}
	api.JSON(w, http.StatusOK, state)
}

func (h *Handler) SetMessage(w http.ResponseWriter, r *http.Request) {
	var req SetMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if err := h.store.SetMessage(r.Context(), chi.URLParam(r, "telegramId"), req.Text); err != nil {
		slog.Error("caching session message", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCustomTone(w http.ResponseWriter, r *http.Request) {
	var req SetCustomToneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.store.SetAwaitingCustomTone(r.Context(), chi.URLParam(r, "telegramId"), req.Awaiting); err != nil {
		slog.Error("setting custom tone flag", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context(), chi.URLParam(r, "telegramId")); err != nil {
		slog.Error("clearing session", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
