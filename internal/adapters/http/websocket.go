package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/samirrijal/geofacet/internal/adapters/nats"
	"github.com/samirrijal/geofacet/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to progress feeds.
type wsMessage struct {
	Action    string `json:"action"`     // "subscribe" | "unsubscribe"
	Channel   string `json:"channel"`    // "heatmap" | "session" (default: heatmap)
	SessionID string `json:"session_id"` // required for the session channel
}

// WebSocketHandler relays sampling progress events to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"session","session_id":"..."}.
// Every connection starts subscribed to heatmap progress.
func WebSocketHandler(progress *natsadapter.Subscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]func()) // subject -> unsubscribe

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(data []byte) {
			mu.Lock()
			defer mu.Unlock()
			_ = c.WriteMessage(websocket.TextMessage, data)
		}

		if progress == nil {
			_ = writeJSON(map[string]string{"error": "progress events not available"})
			return
		}

		unsub, err := progress.SubscribeProgressJSON(natsadapter.SubjectHeatmapProgress, relay)
		if err != nil {
			slog.Warn("ws default subscribe failed", "error", err)
			return
		}
		subs[natsadapter.SubjectHeatmapProgress] = unsub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
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

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			var subject string
			switch m.Channel {
			case "", "heatmap":
				subject = natsadapter.SubjectHeatmapProgress
			case "session":
				if m.SessionID == "" {
					_ = writeJSON(map[string]string{"error": "session_id is required"})
					continue
				}
				subject = natsadapter.SubjectSessionProgress + m.SessionID
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				unsub, err := progress.SubscribeProgressJSON(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = unsub
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if unsub, exists := subs[subject]; exists {
					unsub()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, unsub := range subs {
			unsub()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
