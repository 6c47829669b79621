package world

import "sync"

// Client is a transport peer identified by the id it presented on join.
// CharacterID is 0 until the client joins a character. Copies of the
// struct share the underlying socket.
type Client struct {
	ID          int64
	Hash        string
	CharacterID int64
	Sock        *Socket
}

// ClientRegistry tracks connected clients by id plus a socket-identity
// reverse index for the read loop's lookups. Both indices are updated
// together under one write lock.
type ClientRegistry struct {
	mu       sync.RWMutex
	clients  map[int64]*Client
	bySocket map[*Socket]int64
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients:  make(map[int64]*Client, 1000),
		bySocket: make(map[*Socket]int64, 1000),
	}
}

// Register inserts or updates a client. Re-registering an existing id
// rebinds the socket and drops the stale reverse entry, so a reconnect
// with the same id does not leak the old socket mapping.
func (r *ClientRegistry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.clients[c.ID]; ok && old.Sock != nil && old.Sock != c.Sock {
		delete(r.bySocket, old.Sock)
	}
	stored := c
	r.clients[c.ID] = &stored
	if c.Sock != nil {
		r.bySocket[c.Sock] = c.ID
	}
}

// Get returns a copy of the client for the given id.
func (r *ClientRegistry) Get(id int64) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return Client{}, false
	}
	return *c, true
}

// GetBySocket resolves a client by socket identity.
func (r *ClientRegistry) GetBySocket(sock *Socket) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySocket[sock]
	if !ok {
		return Client{}, false
	}
	c, ok := r.clients[id]
	if !ok {
		return Client{}, false
	}
	return *c, true
}

// ClientIDBySocket returns the id bound to a socket, 0 when unknown.
// The ping fast path uses this when the header omits clientId.
func (r *ClientRegistry) ClientIDBySocket(sock *Socket) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySocket[sock]
}

// SetCharacter binds the character a client controls.
func (r *ClientRegistry) SetCharacter(clientID, characterID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return false
	}
	c.CharacterID = characterID
	return true
}

// Remove deletes a client by id, maintaining the reverse index.
// Removing an absent id is a no-op, so double disconnects are harmless.
func (r *ClientRegistry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	delete(r.clients, id)
	if c.Sock != nil {
		delete(r.bySocket, c.Sock)
	}
	return true
}

// RemoveBySocket deletes the client bound to a socket and returns a
// copy of what was removed. Used by session teardown, which only knows
// its own socket.
func (r *ClientRegistry) RemoveBySocket(sock *Socket) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bySocket[sock]
	if !ok {
		return Client{}, false
	}
	c := *r.clients[id]
	delete(r.clients, id)
	delete(r.bySocket, sock)
	return c, true
}

// All returns copies of every connected client.
func (r *ClientRegistry) All() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out
}

// ForEach iterates over clients under the read lock. fn must not block
// or call back into the registry; return false to stop early.
func (r *ClientRegistry) ForEach(fn func(Client) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if !fn(*c) {
			return
		}
	}
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
