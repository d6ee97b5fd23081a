package directory

import (
	"sync"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// Directory is the single source of truth for who is online on which
// connection. It keeps a bidirectional mapping between live connection
// handles and the identity currently using each one. All access goes
// through the directory; the raw maps are never exposed.
type Directory struct {
	mu     sync.RWMutex
	conns  map[string]*entry                           // connectionID -> entry
	byUser map[string]map[string]interfaces.Connection // userID -> connectionID -> conn
}

type entry struct {
	conn     interfaces.Connection
	identity *types.Identity
}

func New() *Directory {
	return &Directory{
		conns:  make(map[string]*entry),
		byUser: make(map[string]map[string]interfaces.Connection),
	}
}

// Register records a freshly opened connection with no identity yet.
// Registering the same connection id twice is a no-op.
func (d *Directory) Register(conn interfaces.Connection) {
	if conn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.conns[conn.ID()]; exists {
		return
	}
	d.conns[conn.ID()] = &entry{conn: conn}
}

// AttachIdentity binds an identity to a connection on a login event.
// Last write wins: a connection that logs in twice simply replaces its
// previous identity, and the user index is moved accordingly.
func (d *Directory) AttachIdentity(connID string, identity *types.Identity) {
	if identity == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.conns[connID]
	if !exists {
		return // unknown connection ids are a no-op
	}

	if e.identity != nil {
		d.unindexUser(e.identity.UserID, connID)
	}

	e.identity = identity
	if d.byUser[identity.UserID] == nil {
		d.byUser[identity.UserID] = make(map[string]interfaces.Connection)
	}
	d.byUser[identity.UserID][connID] = e.conn
}

// Identity returns the identity attached to a connection, if any.
func (d *Directory) Identity(connID string) (*types.Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, exists := d.conns[connID]
	if !exists || e.identity == nil {
		return nil, false
	}
	return e.identity, true
}

// Connection returns the live handle for a connection id.
func (d *Directory) Connection(connID string) (interfaces.Connection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, exists := d.conns[connID]
	if !exists {
		return nil, false
	}
	return e.conn, true
}

// FindConnectionsFor returns every live connection the user is logged in
// on. A user on two devices gets two entries.
func (d *Directory) FindConnectionsFor(userID string) []interfaces.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conns := make([]interfaces.Connection, 0, len(d.byUser[userID]))
	for _, conn := range d.byUser[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// UpdatePresence mutates the presence state of the identity attached to
// a connection. Unknown or identityless connections are a no-op.
func (d *Directory) UpdatePresence(connID, status string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, exists := d.conns[connID]; exists && e.identity != nil {
		e.identity.Presence = status
	}
}

// Remove deletes a connection on disconnect and returns the identity
// that was attached, or nil if the connection never logged in. Callers
// use the returned identity to decide whether cleanup is warranted.
func (d *Directory) Remove(connID string) *types.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.conns[connID]
	if !exists {
		return nil
	}
	delete(d.conns, connID)

	if e.identity == nil {
		return nil
	}
	d.unindexUser(e.identity.UserID, connID)
	return e.identity
}

// Snapshot returns every open connection for global fan-out. The slice
// is a copy; callers may iterate without holding any lock.
func (d *Directory) Snapshot() []interfaces.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conns := make([]interfaces.Connection, 0, len(d.conns))
	for _, e := range d.conns {
		conns = append(conns, e.conn)
	}
	return conns
}

// Stats reports directory counters for the monitoring endpoint.
func (d *Directory) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return map[string]int{
		"connections":  len(d.conns),
		"users_online": len(d.byUser),
	}
}

// unindexUser removes one connection from a user's index and drops the
// user bucket when it empties. Caller must hold d.mu.
func (d *Directory) unindexUser(userID, connID string) {
	if conns, exists := d.byUser[userID]; exists {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(d.byUser, userID)
		}
	}
}
