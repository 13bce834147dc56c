package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
)

type wsOutbound struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleWebSocket answers every inbound frame on its own; the connection carries no history.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		out := h.reply(ctx, data)
		if err := h.write(conn, out); err != nil {
			log.Printf("[ws] write error: %v", err)
			return
		}
	}
}

func (h *Handler) reply(ctx context.Context, data []byte) wsOutbound {
	var inbound chatRequest
	if err := json.Unmarshal(data, &inbound); err != nil {
		return wsOutbound{Error: "invalid message"}
	}
	if inbound.Message == "" {
		return wsOutbound{Error: errMessageRequired}
	}

	reply, err := h.process(ctx, inbound.Message)
	if err != nil {
		log.Printf("[ws] %v", err)
		return wsOutbound{Error: errProcessFailed}
	}
	return wsOutbound{Response: reply}
}

func (h *Handler) write(conn *websocket.Conn, msg wsOutbound) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// originChecker accepts requests without Origin, same-host origins and allowedOrigin.
func originChecker(allowedOrigin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || (allowedOrigin != "" && origin == allowedOrigin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
