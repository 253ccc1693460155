package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quizdeck/quizdeck/internal/leaderboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsPingInterval = 30 * time.Second

// LeaderboardSocketHandler upgrades the connection and pushes refresh
// notices whenever an attempt finalizes. The socket is push-only; inbound
// frames are drained solely to detect the peer closing.
func LeaderboardSocketHandler(hub *leaderboard.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		updates, cancel := hub.Subscribe()
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case msg := <-updates:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
