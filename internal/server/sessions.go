package server

import (
	"container/list"
	"sync"
	"time"

	"github.com/Eldo84/live-health-sub002/internal/session"
)

// sessionStore keeps per-client sessions as an LRU bounded by count and
// idle time. An evicted client simply gets a fresh session next time.
type sessionStore struct {
	mu      sync.Mutex
	cap     int
	ttl     time.Duration
	timeout time.Duration // permission timeout for new sessions
	now     func() time.Time
	ll      *list.List               // most-recent at front
	items   map[string]*list.Element // id -> element
}

type sessionEntry struct {
	id       string
	sess     *session.Session
	lastSeen time.Time
}

func newSessionStore(maxSessions int, idleTTL, permissionTimeout time.Duration) *sessionStore {
	if maxSessions <= 0 {
		maxSessions = 10000
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &sessionStore{
		cap:     maxSessions,
		ttl:     idleTTL,
		timeout: permissionTimeout,
		now:     time.Now,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
}

// get returns the session for id, creating it when absent or idle too long.
func (st *sessionStore) get(id string) *session.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	if el, ok := st.items[id]; ok {
		en := el.Value.(*sessionEntry)
		if now.Sub(en.lastSeen) < st.ttl {
			en.lastSeen = now
			st.ll.MoveToFront(el)
			return en.sess
		}
		st.evict(el)
	}
	en := &sessionEntry{id: id, sess: session.New(st.timeout), lastSeen: now}
	st.items[id] = st.ll.PushFront(en)
	for st.ll.Len() > st.cap {
		st.evict(st.ll.Back())
	}
	// drop idle sessions from the tail
	for t := st.ll.Back(); t != nil && now.Sub(t.Value.(*sessionEntry).lastSeen) >= st.ttl; t = st.ll.Back() {
		st.evict(t)
	}
	return en.sess
}

// remove forgets id; a later request starts over.
func (st *sessionStore) remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if el, ok := st.items[id]; ok {
		st.evict(el)
	}
}

func (st *sessionStore) evict(el *list.Element) {
	st.ll.Remove(el)
	delete(st.items, el.Value.(*sessionEntry).id)
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ll.Len()
}
