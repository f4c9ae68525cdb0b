package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
}

// NewSubscriber connects a durable consumer named durable.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeBoundaryEvents delivers every boundary event of every site.
// A message is acked once handler succeeds; undecodable messages are terminated.
func (s *Subscriber) SubscribeBoundaryEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.BoundaryEvent) error) error {
	_, err := s.js.Subscribe(boundarySubject+">", func(msg *nats.Msg) {
		var ev domain.BoundaryEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed boundary event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	return err
}

// Close drains the connection. The durable consumer is kept on the server
// so a restarted subscriber resumes where it stopped.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
