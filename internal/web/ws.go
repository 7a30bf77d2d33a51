package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteWait = 2 * time.Second

// StateStreamHandler upgrades to a websocket and pushes each published
// device snapshot as a text message. Client messages are read and dropped.
func StateStreamHandler(states *StateBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if states == nil {
			http.Error(w, "state stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: ws upgrade: %v", err)
			return
		}
		defer conn.Close()

		id, ch := states.Subscribe(4)
		defer states.Unsubscribe(id)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}
}
