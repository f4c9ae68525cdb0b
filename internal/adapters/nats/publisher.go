package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

const (
	boundaryStream  = "SITE_BOUNDARIES"
	boundarySubject = "sites.boundary."
	deletedSubject  = "sites.deleted."
)

// BoundarySubject is the subject carrying boundary events of one site.
func BoundarySubject(siteID string) string { return boundarySubject + siteID }

// DeletedSubject is the subject announcing the deletion of one site.
func DeletedSubject(siteID string) string { return deletedSubject + siteID }

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js}, nil
}

// ensureStream creates the boundary stream or brings its config up to date.
func ensureStream(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:      boundaryStream,
		Subjects:  []string{boundarySubject + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishBoundaryEvent stores the event in the boundary stream.
func (p *Publisher) PublishBoundaryEvent(ctx context.Context, ev *domain.BoundaryEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(BoundarySubject(ev.SiteID), data, nats.Context(ctx))
	return err
}

// PublishSiteDeleted notifies live editors that a site is gone. Not persisted.
func (p *Publisher) PublishSiteDeleted(ctx context.Context, siteID string) error {
	return p.conn.Publish(DeletedSubject(siteID), []byte(siteID))
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
