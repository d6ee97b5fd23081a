package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"campushub/internal/broadcast"
	"campushub/internal/directory"
	"campushub/internal/identity"
	"campushub/internal/room"
	"campushub/internal/router"
	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// Hub is the single long-lived coordinator for the realtime layer. Every
// inbound client event funnels through one processing goroutine, which
// serializes all directory and room mutation; broadcasts only read
// consistent snapshots taken at that moment. Nothing in the loop blocks
// on disk or network: outbound delivery goes through per-connection
// buffered writers and the one persistence write (offline status on
// disconnect) is fire-and-forget.
type Hub struct {
	dispatchCh   chan *dispatch
	registerCh   chan interfaces.Connection
	unregisterCh chan string // connection id
	shutdownCh   chan struct{}

	directory   *directory.Directory
	rooms       *room.Registry
	broadcaster *broadcast.Broadcaster
	router      *router.Router
	resolver    *identity.Resolver
	users       interfaces.UserStore

	running bool
	mu      sync.RWMutex
}

// dispatch pairs a decoded-enough frame with the connection it arrived on.
type dispatch struct {
	conn interfaces.Connection
	env  *types.Envelope
}

func NewHub(
	dir *directory.Directory,
	rooms *room.Registry,
	broadcaster *broadcast.Broadcaster,
	msgRouter *router.Router,
	resolver *identity.Resolver,
	users interfaces.UserStore,
) *Hub {
	return &Hub{
		dispatchCh:   make(chan *dispatch, 1000), // absorbs event bursts without blocking read pumps
		registerCh:   make(chan interfaces.Connection, 100),
		unregisterCh: make(chan string, 100),
		shutdownCh:   make(chan struct{}),
		directory:    dir,
		rooms:        rooms,
		broadcaster:  broadcaster,
		router:       msgRouter,
		resolver:     resolver,
		users:        users,
	}
}

// Start begins hub processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting realtime hub...")
	go h.run(ctx)
	return nil
}

// Stop shuts down the processing loop.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping realtime hub...")
	select {
	case <-h.shutdownCh:
	default:
		close(h.shutdownCh)
	}
	return nil
}

// Register queues a freshly opened connection.
func (h *Hub) Register(conn interfaces.Connection) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.registerCh <- conn:
		return nil
	default:
		return ErrRegisterChannelFull
	}
}

// Unregister queues a disconnect for reconciliation. Keyed by connection
// id so cleanup works even after the connection object is gone.
func (h *Hub) Unregister(connID string) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.unregisterCh <- connID:
		return nil
	default:
		return ErrUnregisterChannelFull
	}
}

// Dispatch queues an inbound frame for processing.
func (h *Hub) Dispatch(conn interfaces.Connection, env *types.Envelope) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.dispatchCh <- &dispatch{conn: conn, env: env}:
		return nil
	default:
		return ErrDispatchChannelFull
	}
}

func (h *Hub) run(ctx context.Context) {
	defer log.Println("Hub processing stopped")

	for {
		select {
		case d := <-h.dispatchCh:
			h.handleEvent(d.conn, d.env)

		case conn := <-h.registerCh:
			if conn == nil {
				continue
			}
			h.directory.Register(conn)
			log.Printf("Connection registered: conn=%s", conn.ID())

		case connID := <-h.unregisterCh:
			h.reconcileDisconnect(connID)

		case <-h.shutdownCh:
			log.Println("Hub shutdown requested")
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			return
		}
	}
}

// handleEvent decodes the frame at the boundary and runs the matching
// handler. Individual failures are logged or answered on the originating
// connection; nothing here can take the hub down.
func (h *Hub) handleEvent(conn interfaces.Connection, env *types.Envelope) {
	payload, err := types.DecodeInbound(env)
	if err != nil {
		log.Printf("Dropping frame from conn %s: %v", conn.ID(), err)
		return
	}

	// Login is the only event that works on an identityless connection.
	if req, ok := payload.(*types.LoginRequest); ok {
		h.handleLogin(conn, req)
		return
	}

	ident, ok := h.directory.Identity(conn.ID())
	if !ok {
		// Not logged in: the connection stays open but inert.
		log.Printf("Ignoring %s from conn %s with no identity", env.Event, conn.ID())
		return
	}

	switch req := payload.(type) {
	case *types.PrivateMessageRequest:
		outcome := h.router.RoutePrivate(ident, conn, req.To, req.Message)
		if outcome == router.RecipientOffline {
			log.Printf("Private message from %s to %s dropped: recipient offline", ident.UserID, req.To)
		}

	case *types.RoomJoinRequest:
		h.handleRoomJoin(conn, ident, req.RoomID)

	case *types.RoomLeaveRequest:
		h.handleRoomLeave(conn, ident, req.RoomID)

	case *types.RoomMessageRequest:
		if _, err := h.router.RouteRoomMessage(req.RoomID, ident, req.Message); err != nil {
			log.Printf("Room message from %s rejected: %v", ident.UserID, err)
		}

	case *types.RoomCreateRequest:
		h.handleRoomCreate(conn, ident, req)

	case *types.TypingRequest:
		h.broadcaster.SetRoomTyping(req.RoomID, ident, req.IsTyping, conn.ID())

	case *types.TypingPrivateRequest:
		h.broadcaster.SetPrivateTyping(ident, req.To, req.IsTyping)

	case *types.StatusRequest:
		h.handleStatus(conn, ident, req)
	}
}

func (h *Hub) handleLogin(conn interfaces.Connection, req *types.LoginRequest) {
	ident, err := h.resolver.Resolve(context.Background(), req)
	if err != nil {
		log.Printf("Login failed on conn %s: %v", conn.ID(), err)
		if sendErr := conn.Send(types.EventAuthError, &types.AuthErrorPayload{Message: "Authentication failed"}); sendErr != nil {
			log.Printf("Failed to send auth error: %v", sendErr)
		}
		return
	}

	// Last login on a connection wins; re-login just replaces the identity.
	h.directory.AttachIdentity(conn.ID(), ident)

	if err := conn.Send(types.EventRoomsList, h.rooms.List()); err != nil {
		log.Printf("Failed to send room list to %s: %v", ident.UserID, err)
	}

	log.Printf("User logged in: %s (%s) anonymous=%t", ident.DisplayName, ident.UserID, ident.Anonymous)
}

func (h *Hub) handleRoomJoin(conn interfaces.Connection, ident *types.Identity, roomID int64) {
	snapshot, err := h.rooms.Join(roomID, ident.UserID, conn.ID())
	if err != nil {
		log.Printf("Join rejected for %s: %v", ident.UserID, err)
		return
	}

	if err := conn.Send(types.EventRoomHistory, snapshot); err != nil {
		log.Printf("Failed to replay history to %s: %v", ident.UserID, err)
	}

	// Membership changed: the joined notice and the refreshed count go
	// out in the same logical step, before any later event is processed.
	h.broadcaster.ToRoom(roomID, types.EventRoomUserJoined, &types.RoomUserJoinedPayload{
		RoomID:    roomID,
		User:      ident,
		Timestamp: time.Now(),
	})
	h.broadcastRoomCount(roomID)

	log.Printf("User %s joined room %d", ident.UserID, roomID)
}

func (h *Hub) handleRoomLeave(conn interfaces.Connection, ident *types.Identity, roomID int64) {
	if err := h.rooms.Leave(roomID, ident.UserID, conn.ID()); err != nil {
		log.Printf("Leave rejected for %s: %v", ident.UserID, err)
		return
	}

	h.broadcaster.ToRoom(roomID, types.EventRoomUserLeft, &types.RoomUserLeftPayload{
		RoomID:    roomID,
		UserID:    ident.UserID,
		Timestamp: time.Now(),
	})
	h.broadcastRoomCount(roomID)

	log.Printf("User %s left room %d", ident.UserID, roomID)
}

func (h *Hub) handleRoomCreate(conn interfaces.Connection, ident *types.Identity, req *types.RoomCreateRequest) {
	if err := req.Validate(); err != nil {
		log.Printf("Room create rejected for %s: %v", ident.UserID, err)
		return
	}

	summary := h.rooms.Create(req.Name, req.Description, req.Category, ident.UserID, conn.ID())

	// Announce the new room to everyone, then confirm the auto-join to
	// the creator.
	h.broadcaster.ToAll(types.EventRoomsNew, summary)
	if err := conn.Send(types.EventRoomJoined, &types.RoomJoinedPayload{RoomID: summary.ID}); err != nil {
		log.Printf("Failed to confirm room join to %s: %v", ident.UserID, err)
	}

	log.Printf("Room created: %q (%d) by %s", summary.Name, summary.ID, ident.UserID)
}

func (h *Hub) handleStatus(conn interfaces.Connection, ident *types.Identity, req *types.StatusRequest) {
	if err := req.Validate(); err != nil {
		log.Printf("Status change rejected for %s: %v", ident.UserID, err)
		return
	}

	h.directory.UpdatePresence(conn.ID(), req.Status)
	h.broadcaster.ToAllExcept(conn.ID(), types.EventStatusUpdate, &types.StatusUpdatePayload{
		UserID: ident.UserID,
		Status: req.Status,
	})
}

// broadcastRoomCount pushes the refreshed member count to every open
// connection so room selectors stay current.
func (h *Hub) broadcastRoomCount(roomID int64) {
	summary, err := h.rooms.Summary(roomID)
	if err != nil {
		return
	}
	h.broadcaster.ToAll(types.EventRoomsUpdate, summary)
}
