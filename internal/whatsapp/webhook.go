package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/metrics"
)

const maxWebhookBody = 1 << 20

// EventHandler is called once per webhook delivery that carries a user message.
type EventHandler func(ctx context.Context, ev Event)

type WebhookHandler struct {
	verifyToken string
	onEvent     EventHandler
	log         *zap.Logger
}

func NewWebhookHandler(verifyToken string, onEvent EventHandler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		onEvent:     onEvent,
		log:         log.Named("webhook"),
	}
}

// HandleVerify handles the GET webhook verification from Meta.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/get-started#webhook-verification
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.log.Warn("verification rejected", zap.String("mode", mode))
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleIncoming processes incoming webhook POST notifications.
// It always answers 200 so Meta does not redeliver; failures are only logged.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Error("reading payload", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("unreadable").Inc()
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("decoding payload", zap.Error(err), zap.ByteString("payload", body))
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return
	}

	ev, err := ParseEvent(payload)
	if errors.Is(err, ErrNoMessages) {
		metrics.WebhookEvents.WithLabelValues("none").Inc()
		return
	}
	if err != nil {
		h.log.Warn("ignoring event", zap.Error(err), zap.ByteString("payload", body))
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return
	}

	metrics.WebhookEvents.WithLabelValues(ev.Kind()).Inc()
	h.onEvent(r.Context(), ev)
}
