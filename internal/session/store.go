// ABOUTME: Thread-safe, TTL- and size-bounded store of MCP client sessions.
// ABOUTME: Idle sessions expire; the least recently used session is evicted at capacity.

package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one initialized MCP client.
type Session struct {
	ID              string
	ProtocolVersion string
	ClientName      string
	ClientVersion   string
	// OwnerHash binds the session to the credential that created it.
	OwnerHash string
	CreatedAt time.Time

	lastSeen time.Time
	element  *list.Element
}

// Store tracks sessions in recency order (least recent at front) so
// eviction is O(1).
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    *list.List
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
	done     chan struct{}
	closed   bool
}

// New creates a store. A background goroutine sweeps expired sessions until
// Close is called. now may be nil.
func New(ttl time.Duration, maxSize int, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		sessions: make(map[string]*Session),
		order:    list.New(),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      now,
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Create registers a new session with a random ID.
func (s *Store) Create(protocolVersion, clientName, clientVersion, ownerHash string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize > 0 && len(s.sessions) >= s.maxSize {
		s.evictOldest()
	}

	now := s.now()
	sess := &Session{
		ID:              uuid.New().String(),
		ProtocolVersion: protocolVersion,
		ClientName:      clientName,
		ClientVersion:   clientVersion,
		OwnerHash:       ownerHash,
		CreatedAt:       now,
		lastSeen:        now,
	}
	sess.element = s.order.PushBack(sess.ID)
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		s.removeLocked(sess)
		return nil, false
	}
	sess.lastSeen = now
	s.order.MoveToBack(sess.element)
	return sess, true
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	s.removeLocked(sess)
	return true
}

// Len returns the number of tracked sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) >= s.ttl
}

// Must be called with mu held.
func (s *Store) removeLocked(sess *Session) {
	s.order.Remove(sess.element)
	delete(s.sessions, sess.ID)
}

// Must be called with mu held.
func (s *Store) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	s.order.Remove(front)
	delete(s.sessions, id)
}

func (s *Store) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Sweep removes every expired session.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, sess := range s.sessions {
		if s.expired(sess, now) {
			s.removeLocked(sess)
		}
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
