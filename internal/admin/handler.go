// Package admin serves the operator endpoints: the metrics report, the
// manual quota reset, recent payments and per-user rewrite history.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tonetuner/tonetuner/internal/api"
	"github.com/tonetuner/tonetuner/internal/auth"
	"github.com/tonetuner/tonetuner/internal/metrics"
	"github.com/tonetuner/tonetuner/internal/payments"
	"github.com/tonetuner/tonetuner/internal/usage"
)

const defaultHistoryLimit = 50

// MetricsSource is satisfied by *metrics.Reporter.
type MetricsSource interface {
	GetMetrics(ctx context.Context) (*metrics.Report, error)
}

// LimitResetter is satisfied by *quota.Limiter.
type LimitResetter interface {
	ResetDaily(ctx context.Context) (int64, error)
}

type PaymentLister interface {
	Recent(ctx context.Context, limit int) ([]payments.Payment, error)
}

type HistoryLister interface {
	ListByTelegramID(ctx context.Context, telegramID string, limit int) ([]usage.Entry, error)
}

// Deps wires a Handler. Payments and History may be nil when the backing
// store is not configured; their endpoints then answer 404.
type Deps struct {
	AdminKey string
	Tokens   *auth.TokenManager
	Metrics  MetricsSource
	Limits   LimitResetter
	Payments PaymentLister
	History  HistoryLister
}

type TokenRequest struct {
	Key string `json:"key" validate:"required"`
}

type Handler struct {
	deps     Deps
	validate *validator.Validate
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, validate: validator.New()}
}

// Token exchanges the admin key for a short-lived bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrMissingFields)
		return
	}
	if !auth.KeyMatches(h.deps.AdminKey, req.Key) {
		slog.Warn("admin token request with bad key", "remote_addr", r.RemoteAddr)
		api.HandleError(w, api.ErrForbidden)
		return
	}

	tok, err := h.deps.Tokens.Issue()
	if err != nil {
		if errors.Is(err, auth.ErrTokensDisabled) {
			api.HandleError(w, api.NewNotFoundError("admin tokens are not enabled"))
			return
		}
		slog.Error("issuing admin token", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, tok)
}

// Metrics returns the aggregated report as a bare document.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Metrics.GetMetrics(r.Context())
	if err != nil {
		slog.Error("building metrics report", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONBody(w, http.StatusOK, report)
}

// ResetLimits runs the daily quota reset immediately.
func (h *Handler) ResetLimits(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Limits.ResetDaily(r.Context())
	if err != nil {
		slog.Error("manual limit reset", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	if h.deps.Payments == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	list, err := h.deps.Payments.Recent(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		slog.Error("listing payments", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if list == nil {
		list = []payments.Payment{}
	}
	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	telegramID := chi.URLParam(r, "telegramId")
	entries, err := h.deps.History.ListByTelegramID(r.Context(), telegramID, queryInt(r, "limit", defaultHistoryLimit))
	if err != nil {
		slog.Error("listing rewrite history", "error", err, "telegram_id", telegramID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []usage.Entry{}
	}
	api.JSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
