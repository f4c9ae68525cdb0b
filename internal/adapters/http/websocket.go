package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/darukaa/siteboundary/internal/adapters/nats"
	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/usecases"
	"github.com/darukaa/siteboundary/internal/mapview"
	"github.com/darukaa/siteboundary/internal/pkg/metrics"
)

// wsOut is every frame the server writes.
type wsOut struct {
	Type   string                  `json:"type"` // result | error | boundary | remote_boundary | site_deleted | closed
	Result *usecases.GestureResult `json:"result,omitempty"`
	Event  *mapview.Event          `json:"event,omitempty"`
	Remote *domain.BoundaryEvent   `json:"remote,omitempty"`
	Error  *APIError               `json:"error,omitempty"`
}

const wsPingInterval = 30 * time.Second

// SessionSocketHandler drives one edit session over a WebSocket.
// Clients send gestures as JSON, e.g. {"action":"draw.vertex","point":{"lat":43.2,"lon":-2.9}}.
// The server answers every gesture, pushes the session's boundary events,
// and relays boundary changes other sessions make to the same site.
// The session is closed when the socket goes away.
func SessionSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sess, err := deps.Boundaries.Get(c.Params("id"))
		if err != nil {
			_ = c.WriteJSON(wsError(err))
			return
		}
		logger := slog.Default().With("session_id", sess.ID, "site_id", sess.SiteID, "remote", c.RemoteAddr().String())
		logger.Info("ws client attached")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v wsOut) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		done := make(chan struct{})
		var wg sync.WaitGroup

		// Local boundary events. The channel closes when the session is
		// closed from elsewhere, which ends the socket too.
		events, unsubscribe := sess.Subscribe(64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				ev := ev
				if err := writeJSON(wsOut{Type: "boundary", Event: &ev}); err != nil {
					return
				}
			}
			select {
			case <-done:
			default:
				_ = writeJSON(wsOut{Type: "closed"})
				_ = c.Close()
			}
		}()

		subs := relayRemote(deps.NATS, sess, writeJSON, c, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var g usecases.Gesture
			if err := json.Unmarshal(msg, &g); err != nil {
				_ = writeJSON(wsOut{Type: "error", Error: &APIError{Status: 400, Code: "bad_request", Message: "invalid JSON"}})
				continue
			}
			res, err := sess.Apply(g)
			if err != nil {
				_ = writeJSON(wsError(err))
				continue
			}
			_ = writeJSON(wsOut{Type: "result", Result: &res})
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		unsubscribe()
		wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Boundaries.Close(ctx, sess.ID); err != nil && !errors.Is(err, usecases.ErrSessionNotFound) {
			logger.Warn("closing session after disconnect", "error", err)
		}
		logger.Info("ws client detached")
	}
}

// relayRemote forwards boundary events other sessions publish for the same
// site, and ends the socket when the site is deleted.
func relayRemote(nc *nats.Conn, sess *usecases.Session, writeJSON func(wsOut) error, c *websocket.Conn, logger *slog.Logger) []*nats.Subscription {
	if nc == nil {
		return nil
	}
	var subs []*nats.Subscription

	s, err := nc.Subscribe(natsadapter.BoundarySubject(sess.SiteID), func(msg *nats.Msg) {
		var ev domain.BoundaryEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn("dropping malformed boundary event", "error", err)
			return
		}
		if ev.SessionID == sess.ID {
			return
		}
		_ = writeJSON(wsOut{Type: "remote_boundary", Remote: &ev})
	})
	if err != nil {
		logger.Warn("ws boundary subscribe failed", "error", err)
	} else {
		subs = append(subs, s)
	}

	s, err = nc.Subscribe(natsadapter.DeletedSubject(sess.SiteID), func(*nats.Msg) {
		_ = writeJSON(wsOut{Type: "site_deleted"})
		_ = c.Close()
	})
	if err != nil {
		logger.Warn("ws delete subscribe failed", "error", err)
	} else {
		subs = append(subs, s)
	}
	return subs
}

func wsError(err error) wsOut {
	status, code, msg, ok := classify(err)
	if !ok {
		slog.Error("ws gesture failed", "error", err)
	}
	return wsOut{Type: "error", Error: &APIError{Status: status, Code: code, Message: msg}}
}
