package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ad-creative-studio/internal/studio"
)

type Session struct {
	ID           string
	Studio       *studio.Session
	CreatedAt    time.Time
	LastActivity time.Time
}

type Options struct {
	// NewStudio builds the studio for a new session.
	NewStudio func() *studio.Session
	Now       func() time.Time
	// OnEvict runs after a session is removed by Delete or Sweep.
	OnEvict func(id string)
}

// Store keeps studio sessions in memory. Nothing is persisted; idle sessions
// are dropped by Sweep.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	newStudio func() *studio.Session
	now       func() time.Time
	onEvict   func(id string)
}

func NewStore(opts Options) *Store {
	newStudio := opts.NewStudio
	if newStudio == nil {
		newStudio = func() *studio.Session { return studio.New(studio.Options{}) }
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions:  make(map[string]*Session),
		newStudio: newStudio,
		now:       now,
		onEvict:   opts.OnEvict,
	}
}

// Create opens a session under a fresh random ID.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(uuid.NewString())
}

// GetOrCreate returns the session for a caller-chosen key, such as a chat.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.LastActivity = s.now()
		return sess
	}
	return s.createLocked(id)
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastActivity = s.now()
	return sess, true
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.evict(sess)
	}
	return ok
}

// Sweep removes sessions idle for longer than maxIdle. Sessions with work in
// flight are kept. It returns the number removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastActivity.After(cutoff) || sess.Studio.State().Busy() {
			continue
		}
		expired = append(expired, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.evict(sess)
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, onSweep func(removed int)) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(maxIdle); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evict(sess *Session) {
	sess.Studio.Close()
	if s.onEvict != nil {
		s.onEvict(sess.ID)
	}
}

func (s *Store) createLocked(id string) *Session {
	now := s.now()
	sess := &Session{
		ID:           id,
		Studio:       s.newStudio(),
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[id] = sess
	return sess
}
