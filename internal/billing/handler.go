package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/copyforge-platform/copyforge/internal/api"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Webhook receives Paddle subscription events. Responses other than 2xx
// cause Paddle to retry, so unprocessable-but-valid events are acknowledged.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	event, err := h.svc.VerifyAndParse(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			api.HandleError(w, api.ErrInvalidSignature)
			return
		}
		slog.Error("parsing billing webhook", "error", err)
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.svc.Apply(r.Context(), event); err != nil {
		slog.Error("applying billing event", "error", err, "event_id", event.EventID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "ok")
}
