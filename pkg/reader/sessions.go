package reader

import (
	"context"
	"sync"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/settings"
)

const defaultMaxSessions = 8

// PreferenceSource is the part of the preference store sessions watch.
type PreferenceSource interface {
	Current() settings.Preferences
	Subscribe() (<-chan settings.Preferences, func())
}

// DeleteSource reports books as they are deleted.
type DeleteSource interface {
	OnDelete(fn func(id string))
}

type session struct {
	instance *render.EPUBInstance
	lastUsed time.Time
}

// Sessions keeps parsed EPUB books alive between requests so chapter turns
// and restyles don't re-read the blob. Every saved preference change restyles
// all of them.
type Sessions struct {
	renderer *render.EPUBRenderer
	prefs    PreferenceSource
	max      int

	mu       sync.Mutex
	sessions map[string]*session

	unsubscribe func()
	done        chan struct{}
}

func NewSessions(renderer *render.EPUBRenderer, prefs PreferenceSource, max int) *Sessions {
	if max <= 0 {
		max = defaultMaxSessions
	}
	return &Sessions{
		renderer: renderer,
		prefs:    prefs,
		max:      max,
		sessions: map[string]*session{},
	}
}

// Watch restyles every open session whenever preferences change, until Close
// is called.
func (s *Sessions) Watch(ctx context.Context) {
	ch, unsubscribe := s.prefs.Subscribe()

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	go func() {
		defer close(done)
		for prefs := range ch {
			n := s.RestyleAll(render.StyleFromPreferences(prefs))
			log.Debug("restyled reader sessions", logger.Data{"count": n, "theme": prefs.Theme})
		}
	}()
}

// ForgetDeleted drops a book's session as soon as the book is deleted.
func (s *Sessions) ForgetDeleted(source DeleteSource) {
	source.OnDelete(func(id string) {
		s.Forget(id)
	})
}

// Close stops watching preferences and drops every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	unsubscribe, done := s.unsubscribe, s.done
	s.unsubscribe, s.done = nil, nil
	s.sessions = map[string]*session{}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		<-done
	}
}

// Open returns the live instance for id, parsing blob into a new one on a
// miss. New instances start with the current preferences.
func (s *Sessions) Open(ctx context.Context, id string, blob []byte) (*render.EPUBInstance, error) {
	if instance, ok := s.Get(id); ok {
		return instance, nil
	}

	instance, err := s.renderer.Load(ctx, blob)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have opened it while we parsed
	if existing, ok := s.sessions[id]; ok {
		existing.lastUsed = time.Now()
		return existing.instance, nil
	}
	if len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[id] = &session{instance: instance, lastUsed: time.Now()}
	// styled under mu so a concurrent RestyleAll either sees this instance or
	// ran before the value read here was published
	instance.Restyle(render.StyleFromPreferences(s.prefs.Current()))
	return instance, nil
}

func (s *Sessions) Get(id string) (*render.EPUBInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastUsed = time.Now()
	return sess.instance, true
}

// Forget drops the session for id. It reports whether one existed.
func (s *Sessions) Forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RestyleAll applies style to every open session and returns how many there
// were.
func (s *Sessions) RestyleAll(style render.Style) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.instance.Restyle(style)
	}
	return len(s.sessions)
}

// evictOldest must be called with mu held.
func (s *Sessions) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastUsed.Before(oldest) {
			oldestID, oldest = id, sess.lastUsed
		}
	}
	delete(s.sessions, oldestID)
}
