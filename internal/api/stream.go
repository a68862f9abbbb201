package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
)

var upgrader = websocket.Upgrader{
	// Origin policy is enforced by the fronting proxy.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// handleStream upgrades to a WebSocket and forwards every snapshot
// published on the channel as one JSON text frame. The client only reads;
// anything it sends is discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before upgrading so a failed subscription is a plain HTTP error.
	sub, err := s.subscriber.SubscribeChannel(ctx, channel)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	go readLoop(conn, cancel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	errs := sub.Errors()

	// Single writer: every frame is written from this goroutine.
	for {
		select {
		case snap, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[API] Stream %s: %v", channel, err)

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

// readLoop drains client frames so control frames are processed, and
// cancels the stream when the client goes away.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
