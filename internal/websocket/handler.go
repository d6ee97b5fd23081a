package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"campushub/internal/config"
	"campushub/internal/hub"
	"campushub/pkg/types"
)

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection read pump. All decoded frames are forwarded to the hub;
// the handler itself holds no state beyond the upgrader settings.
type Handler struct {
	hub *hub.Hub
	cfg *config.WebSocketConfig

	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, wsCfg *config.WebSocketConfig, allowedOrigin string) *Handler {
	return &Handler{
		hub: h,
		cfg: wsCfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      originChecker(allowedOrigin),
		},
	}
}

// originChecker matches the Origin header against the configured client
// URL. "*" disables the check for local development.
func originChecker(allowedOrigin string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowedOrigin == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowedOrigin
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// hub. No credentials are required at upgrade time: identity arrives
// later on the login event, and a connection that never logs in stays
// open but inert.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(wsConn, h.cfg.SendBuffer, h.cfg.WriteTimeout)

	if err := h.hub.Register(conn); err != nil {
		log.Printf("Failed to register connection %s: %v", conn.ID(), err)
		_ = conn.Close()
		return
	}

	go h.readPump(conn, wsConn)
}

// readPump reads frames until the channel dies, forwarding each to the
// hub. Its exit is the one disconnect signal: the deferred unregister
// triggers the hub's reconciliation no matter how the connection ended.
func (h *Handler) readPump(conn *Connection, wsConn *websocket.Conn) {
	defer func() {
		if err := h.hub.Unregister(conn.ID()); err != nil {
			log.Printf("Failed to unregister connection %s: %v", conn.ID(), err)
		}
		_ = conn.Close()
	}()

	wsConn.SetReadLimit(h.cfg.MaxMessageSize)
	if err := wsConn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	// Heartbeat ticker keeps intermediaries from reaping idle
	// connections and detects silent client death.
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := wsConn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := wsConn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Printf("Frame from conn %s exceeded maximum size of %d bytes", conn.ID(), h.cfg.MaxMessageSize)
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on conn %s: %v", conn.ID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Dropping unparseable frame from conn %s: %v", conn.ID(), err)
			continue
		}

		if err := h.hub.Dispatch(conn, &env); err != nil {
			log.Printf("Failed to dispatch %s from conn %s: %v", env.Event, conn.ID(), err)
		}
	}
}
