package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/copyforge-platform/copyforge/internal/api"
	"github.com/copyforge-platform/copyforge/internal/identity"
	"github.com/copyforge-platform/copyforge/internal/metering"
	"github.com/copyforge-platform/copyforge/internal/plan"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// quotaRejection is the 429 body. The snapshot integers are the values the
// gate evaluated, carried through verbatim rather than recomputed.
type quotaRejection struct {
	Error  string        `json:"error"`
	Reason string        `json:"reason"`
	Limits limitSnapshot `json:"limits"`
}

type limitSnapshot struct {
	DailyTokensRemaining   int    `json:"daily_tokens_remaining"`
	MonthlyTokensRemaining int    `json:"monthly_tokens_remaining"`
	GenerationsUsed        int    `json:"generations_used"`
	GenerationsLimit       int    `json:"generations_limit"`
	GenerationsRemaining   int    `json:"generations_remaining"`
	GenerationsDisplay     string `json:"generations_display"`
}

func snapshotOf(avail metering.Availability) limitSnapshot {
	return limitSnapshot{
		DailyTokensRemaining:   avail.DailyTokensRemaining,
		MonthlyTokensRemaining: avail.MonthlyTokensRemaining,
		GenerationsUsed:        avail.GenerationsUsed,
		GenerationsLimit:       avail.GenerationsLimit,
		GenerationsRemaining:   avail.GenerationsRemaining,
		GenerationsDisplay:     generationsDisplay(avail),
	}
}

func generationsDisplay(avail metering.Availability) string {
	if avail.GenerationsLimit == plan.Unlimited {
		return fmt.Sprintf("%d used (unlimited)", avail.GenerationsUsed)
	}
	return fmt.Sprintf("%d/%d used", avail.GenerationsUsed, avail.GenerationsLimit)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	subj := identity.GetSubject(r.Context())
	if subj == nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	outcome, err := h.svc.Generate(r.Context(), subj, req)
	if err != nil {
		slog.Error("generating content", "error", err, "subject", subj.Key())
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if outcome.Rejected {
		api.JSONRaw(w, http.StatusTooManyRequests, quotaRejection{
			Error:  outcome.Decision.Reason.Message(),
			Reason: string(outcome.Decision.Reason),
			Limits: snapshotOf(outcome.Decision.Snapshot),
		})
		return
	}

	api.JSON(w, http.StatusOK, outcome.Generation)
}

// Status reports current availability plus the plan's limits for the
// resolved identity.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	subj := identity.GetSubject(r.Context())
	if subj == nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	avail, limits, err := h.svc.Status(r.Context(), subj)
	if err != nil {
		slog.Error("reading quota status", "error", err, "subject", subj.Key())
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"tier":         subj.Tier(),
		"availability": avail,
		"limits":       limits,
		"display": map[string]string{
			"generations": generationsDisplay(avail),
		},
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	subj := identity.GetSubject(r.Context())
	if subj == nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.svc.History(r.Context(), subj, page, pageSize)
	if err != nil {
		slog.Error("listing generation history", "error", err, "subject", subj.Key())
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if items == nil {
		items = []Generation{}
	}

	api.JSONPaginated(w, http.StatusOK, items, total, page, pageSize)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
