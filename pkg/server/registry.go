package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one registered WebSocket connection. The embedded mutex
// serializes application-side multi-step sends against teardown: an app
// goroutine that locks the connection can enqueue several packets
// knowing the connection will not be torn down between them.
type Conn struct {
	id        uint64
	sessionID string
	ws        *websocket.Conn
	queue     *PacketQueue

	mu       sync.Mutex
	writable chan struct{}
	done     chan struct{}
	once     sync.Once
}

// ID returns the connection's opaque monotonic id.
func (c *Conn) ID() uint64 {
	return c.id
}

// SessionID returns the connection's session id.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// Lock acquires the per-connection mutex.
func (c *Conn) Lock() {
	c.mu.Lock()
}

// Unlock releases the per-connection mutex.
func (c *Conn) Unlock() {
	c.mu.Unlock()
}

// Enqueue places a packet on the outbound queue and signals the write
// loop. Returns ErrConnectionClosed after teardown began.
func (c *Conn) Enqueue(p Packet) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	if err := c.queue.Enqueue(p); err != nil {
		return err
	}
	c.signalWrite()
	return nil
}

// QueueLen returns the number of packets awaiting the write loop.
func (c *Conn) QueueLen() int {
	return c.queue.Len()
}

// signalWrite nudges the write loop. The channel holds at most one
// pending signal; a loop that drains one packet re-signals itself while
// the queue is non-empty.
func (c *Conn) signalWrite() {
	select {
	case c.writable <- struct{}{}:
	default:
	}
}

// shutdown marks the connection dead exactly once.
func (c *Conn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// Registry tracks live connections by id and by session id. Ids are
// monotonic and never reused within a run, so an id held across a
// removal simply stops resolving instead of naming a different
// connection.
type Registry struct {
	mu        sync.RWMutex
	conns     map[uint64]*Conn
	bySession map[string]*Conn
	nextID    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[uint64]*Conn),
		bySession: make(map[string]*Conn),
	}
}

// Add registers a connection and assigns its id.
func (r *Registry) Add(ws *websocket.Conn, sessionID string, queueCapacity int) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c := &Conn{
		id:        r.nextID,
		sessionID: sessionID,
		ws:        ws,
		queue:     NewPacketQueue(queueCapacity),
		writable:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	r.conns[c.id] = c
	r.bySession[sessionID] = c
	return c
}

// Get resolves a connection id. A stale id returns false.
func (r *Registry) Get(id uint64) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// GetBySession resolves a session id to its connection.
func (r *Registry) GetBySession(sessionID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bySession[sessionID]
	return c, ok
}

// Remove drops a connection from both indexes and reports whether this
// call did the removal, so concurrent teardown paths agree on a single
// winner. The per-connection mutex is held across shutdown so an
// app-side sender never observes a half-removed connection.
func (r *Registry) Remove(id uint64) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
		if r.bySession[c.sessionID] == c {
			delete(r.bySession, c.sessionID)
		}
	}
	r.mu.Unlock()

	if ok {
		c.mu.Lock()
		c.shutdown()
		c.mu.Unlock()
	}
	return ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// All returns a snapshot of the live connections.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
