package natsadapter

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber relays progress events from core NATS subscriptions.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// Connected reports whether the connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// SubscribeProgressJSON calls handler with the JSON form of every progress
// event published on subject. The returned func unsubscribes.
func (s *Subscriber) SubscribeProgressJSON(subject string, handler func(data []byte)) (func(), error) {
	if s.conn == nil {
		return nil, fmt.Errorf("nats not configured")
	}
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		data, err := ProgressJSON(msg.Data)
		if err != nil {
			slog.Debug("dropping undecodable progress event", "subject", msg.Subject, "error", err)
			return
		}
		handler(data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
