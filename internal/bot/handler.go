package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/catalog"
	"github.com/tiendabot/pedidos/internal/events"
	"github.com/tiendabot/pedidos/internal/metrics"
	"github.com/tiendabot/pedidos/internal/session"
	"github.com/tiendabot/pedidos/internal/store"
	"github.com/tiendabot/pedidos/internal/whatsapp"
)

// Reply button ids. add_ is followed by the selected row id.
const (
	AddPrefix    = "add_"
	ViewCartID   = "ver_carrito"
	FinishID     = "finalizar"
	ConfirmYesID = "confirm_si"
	ConfirmNoID  = "confirm_no"
	StartMenuID  = "start_menu"
	TalkAgentID  = "hablar_agente"
)

const (
	greetingText  = "Hola 👋 Escribe 'menu' o 'pedido' para empezar."
	menuHeader    = "Menú"
	menuBody      = "Elige una categoría para tu pedido:"
	menuFooter    = "Puedes volver a escribir 'menu' para reiniciar."
	menuButton    = "Ver categorías"
	cartText      = "Tu carrito tiene X ítems (demo). ¿Deseas finalizar?"
	confirmBody   = "Confirma tu pedido:"
	confirmedText = "¡Pedido confirmado! Gracias."
	cancelledText = "Pedido cancelado. Escribe 'menu' para iniciar de nuevo."
	startBody     = "¿Listo para hacer tu pedido?"
)

// Sender is the Messaging Gateway capability the handler needs.
type Sender interface {
	Send(ctx context.Context, msg whatsapp.SendMessageRequest) (*whatsapp.SendResponse, error)
}

// CatalogReader gives the handler a consistent copy of the catalog.
type CatalogReader interface {
	Snapshot() *catalog.Catalog
}

// Handler walks a sender through menu → product → cart → confirm. Each reply
// depends only on the current event; the session record is used to flag
// replies to options that were never offered, not to change the reply.
type Handler struct {
	wa       Sender
	catalog  CatalogReader
	sessions *session.Manager
	ledger   store.Ledger
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

func NewHandler(wa Sender, c CatalogReader, sessions *session.Manager, ledger store.Ledger, pub events.Publisher, log *zap.Logger) *Handler {
	return &Handler{
		wa:       wa,
		catalog:  c,
		sessions: sessions,
		ledger:   ledger,
		events:   pub,
		log:      log.Named("bot"),
		now:      time.Now,
	}
}

// Handle processes one inbound event and sends at most one message.
// Errors are logged; the caller acknowledges the webhook regardless.
func (h *Handler) Handle(ctx context.Context, ev whatsapp.Event) {
	phone := ev.Sender()
	log := h.log.With(zap.String("phone", phone), zap.String("kind", ev.Kind()))

	h.sessions.WithLock(phone, func(s *session.Session) error {
		h.checkOffered(log, s, ev)

		msg, offered, err := h.reply(ctx, log, ev)
		if err != nil {
			log.Error("building reply", zap.Error(err))
			return err
		}
		if msg == nil {
			log.Debug("no reply for event", zap.Any("event", ev))
			return nil
		}

		if _, err := h.wa.Send(ctx, *msg); err != nil {
			log.Error("failed to send reply", zap.Error(err), zap.Any("event", ev))
			return err
		}
		if offered != nil {
			s.Offer(offered...)
		}
		return nil
	})
}

func (h *Handler) checkOffered(log *zap.Logger, s *session.Session, ev whatsapp.Event) {
	var id string
	switch e := ev.(type) {
	case whatsapp.ButtonReplyEvent:
		id = e.ID
	case whatsapp.ListReplyEvent:
		id = e.ID
	default:
		return
	}
	if !s.Offered(id) {
		log.Info("reply to an option not offered in this session", zap.String("id", id))
	}
}

// reply picks the outbound message for ev. A nil message means no reply.
// offered lists the reply ids the message presents, nil for plain text.
func (h *Handler) reply(ctx context.Context, log *zap.Logger, ev whatsapp.Event) (*whatsapp.SendMessageRequest, []string, error) {
	switch e := ev.(type) {
	case whatsapp.TextEvent:
		return h.replyText(e)
	case whatsapp.ListReplyEvent:
		return h.replyListSelection(e)
	case whatsapp.ButtonReplyEvent:
		return h.replyButton(ctx, log, e)
	default:
		return nil, nil, fmt.Errorf("unsupported event %T", ev)
	}
}

func (h *Handler) replyText(e whatsapp.TextEvent) (*whatsapp.SendMessageRequest, []string, error) {
	text := strings.ToLower(strings.TrimSpace(e.Body))
	if !strings.Contains(text, "pedido") && !strings.Contains(text, "menu") {
		return plain(e.From, greetingText)
	}

	c := h.catalog.Snapshot()
	sections := make([]whatsapp.ListSection, len(c.Categories))
	var offered []string
	for i, cat := range c.Categories {
		items := make([]whatsapp.ListItem, len(cat.Items))
		for j, p := range cat.Items {
			items[j] = whatsapp.ListItem{ID: p.ID, Title: p.Title, Description: p.Description}
			offered = append(offered, p.ID)
		}
		sections[i] = whatsapp.ListSection{Title: cat.Title, Items: items}
	}

	msg, err := whatsapp.BuildListMessage(whatsapp.ListPrompt{
		To:         e.From,
		Header:     menuHeader,
		Body:       menuBody,
		Footer:     menuFooter,
		ButtonText: menuButton,
		Sections:   sections,
	})
	if err != nil {
		return nil, nil, err
	}
	if offered == nil {
		offered = []string{}
	}
	return &msg, offered, nil
}

func (h *Handler) replyListSelection(e whatsapp.ListReplyEvent) (*whatsapp.SendMessageRequest, []string, error) {
	return buttons(e.From, fmt.Sprintf("Elegiste: %s. ¿Qué deseas hacer?", e.Title), []whatsapp.ButtonOption{
		{ID: AddPrefix + e.ID, Title: "Agregar"},
		{ID: ViewCartID, Title: "Ver carrito"},
		{ID: FinishID, Title: "Finalizar"},
	})
}

func (h *Handler) replyButton(ctx context.Context, log *zap.Logger, e whatsapp.ButtonReplyEvent) (*whatsapp.SendMessageRequest, []string, error) {
	switch {
	case strings.HasPrefix(e.ID, AddPrefix):
		productID := strings.TrimPrefix(e.ID, AddPrefix)
		if err := h.ledger.AddToCart(e.From, productID, h.now()); err != nil {
			log.Error("recording cart line", zap.Error(err), zap.String("product_id", productID))
		}
		return plain(e.From, fmt.Sprintf("Añadido al carrito: %s. Escribe 'menu' para agregar más.", productID))

	case e.ID == ViewCartID:
		return plain(e.From, cartText)

	case e.ID == FinishID:
		return buttons(e.From, confirmBody, []whatsapp.ButtonOption{
			{ID: ConfirmYesID, Title: "Confirmar"},
			{ID: ConfirmNoID, Title: "Cancelar"},
		})

	case e.ID == ConfirmYesID:
		h.confirm(ctx, log, e.From)
		return plain(e.From, confirmedText)

	case e.ID == ConfirmNoID:
		h.cancel(ctx, log, e.From)
		return plain(e.From, cancelledText)

	default:
		// Unknown or stale button ids are ignored.
		return nil, nil, nil
	}
}

func (h *Handler) confirm(ctx context.Context, log *zap.Logger, phone string) {
	order, err := h.ledger.ConfirmOrder(phone, h.now())
	if err != nil {
		log.Error("confirming order", zap.Error(err))
		return
	}
	if order == nil {
		return
	}
	metrics.OrdersTotal.WithLabelValues("confirmed").Inc()
	log.Info("order confirmed", zap.String("order_id", order.ID), zap.Int("lines", len(order.Lines)))
	if err := h.events.Publish(ctx, events.SubjectOrderConfirmed, order); err != nil {
		log.Warn("publishing order", zap.Error(err), zap.String("order_id", order.ID))
	}
}

func (h *Handler) cancel(ctx context.Context, log *zap.Logger, phone string) {
	dropped, err := h.ledger.CancelOrder(phone)
	if err != nil {
		log.Error("cancelling order", zap.Error(err))
		return
	}
	metrics.OrdersTotal.WithLabelValues("cancelled").Inc()
	payload := map[string]any{"phone": phone, "dropped_lines": dropped}
	if err := h.events.Publish(ctx, events.SubjectOrderCancelled, payload); err != nil {
		log.Warn("publishing cancellation", zap.Error(err))
	}
}

// StartMessage is the prompt sent by the manual flow trigger.
func StartMessage(phone string) (whatsapp.SendMessageRequest, error) {
	return whatsapp.BuildButtonMessage(phone, startBody, []whatsapp.ButtonOption{
		{ID: StartMenuID, Title: "Ver menú"},
		{ID: TalkAgentID, Title: "Hablar con agente"},
	})
}

func plain(to, body string) (*whatsapp.SendMessageRequest, []string, error) {
	msg, err := whatsapp.BuildText(to, body)
	if err != nil {
		return nil, nil, err
	}
	return &msg, nil, nil
}

func buttons(to, body string, opts []whatsapp.ButtonOption) (*whatsapp.SendMessageRequest, []string, error) {
	msg, err := whatsapp.BuildButtonMessage(to, body, opts)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return &msg, ids, nil
}
