// Package events publishes order and catalog notifications for other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectOrderConfirmed = "pedidos.orders.confirmed"
	SubjectOrderCancelled = "pedidos.orders.cancelled"
	SubjectCatalogUpdated = "pedidos.catalog.updated"
)

// Envelope wraps every published payload.
type Envelope struct {
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close()
}

// Nop drops every event. Used when NATS_URL is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}

// NATSPublisher publishes JSON envelopes on core NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
	now  func() time.Time
}

// Connect dials NATS with unlimited reconnects.
func Connect(url string, log *zap.Logger) (*NATSPublisher, error) {
	log = log.Named("nats")
	nc, err := nats.Connect(url,
		nats.Name("pedidos"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("async error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, now: time.Now}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encode(subject, data, p.now())
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

func encode(subject string, data any, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(Envelope{Subject: subject, At: at.UTC(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", subject, err)
	}
	return payload, nil
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*NATSPublisher)(nil)
)
