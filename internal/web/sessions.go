package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/areawizard/internal/flow"
	"github.com/vbonduro/areawizard/internal/store"
)

const sessionCookie = "wizard_session"

// session is the server-side state of one browser: its wizard controller and
// a one-shot notification shown on the next render.
type session struct {
	id         string
	controller *flow.Controller
	mu         sync.Mutex
	flash      flash
	// lastSeen is guarded by Sessions.mu.
	lastSeen time.Time
}

type flash struct {
	Kind    string // success, info, warning, error
	Message string
}

func (s *session) setFlash(kind, message string) {
	s.mu.Lock()
	s.flash = flash{Kind: kind, Message: message}
	s.mu.Unlock()
}

func (s *session) takeFlash() flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flash
	s.flash = flash{}
	return f
}

type SessionOptions struct {
	// IdleTTL is how long a session may go without a request.
	IdleTTL time.Duration
	// MaxSessions bounds the live sessions; starting one more evicts the
	// least recently used.
	MaxSessions int
	// OnExpire releases the stored state of a discarded session. It defaults
	// to restarting the controller, which clears its partitions.
	OnExpire func(ctx context.Context, c *flow.Controller)
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{IdleTTL: 30 * time.Minute, MaxSessions: 1000}
}

// Sessions maps session cookies to wizard controllers. Idle sessions are
// dropped by Sweep, and by lookups that find them expired.
type Sessions struct {
	mu       sync.Mutex
	store    store.Store
	opts     SessionOptions
	logger   *slog.Logger
	now      func() time.Time
	sessions map[string]*session
}

func NewSessions(s store.Store, opts SessionOptions, logger *slog.Logger) *Sessions {
	defaults := DefaultSessionOptions()
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaults.IdleTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaults.MaxSessions
	}
	if opts.OnExpire == nil {
		opts.OnExpire = func(ctx context.Context, c *flow.Controller) { c.Restart(ctx) }
	}
	return &Sessions{
		store:    s,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// forRequest returns the session named by the request cookie, starting a new
// one (and setting the cookie) when the cookie is absent, unknown or expired.
func (m *Sessions) forRequest(w http.ResponseWriter, r *http.Request) *session {
	ctx := context.WithoutCancel(r.Context())
	now := m.now()

	var stale []*session
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		m.mu.Lock()
		sess, ok := m.sessions[c.Value]
		switch {
		case ok && !m.idle(sess, now):
			sess.lastSeen = now
			m.mu.Unlock()
			return sess
		case ok:
			delete(m.sessions, c.Value)
			stale = append(stale, sess)
		}
		m.mu.Unlock()
	}

	id := uuid.NewString()
	sess := &session{id: id, controller: flow.NewController(m.store, id, m.logger), lastSeen: now}
	sess.controller.Subscribe(flow.ObserverFunc(func(ch flow.ScreenChange) {
		m.logger.Debug("screen changed", "session_id", id, "screen", ch.Screen.String(), "previous", ch.Previous.String())
	}))

	m.mu.Lock()
	for len(m.sessions) >= m.opts.MaxSessions {
		stale = append(stale, m.evictOldestLocked())
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	for _, old := range stale {
		m.expire(ctx, old)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Info("session started", "session_id", id)
	return sess
}

// Sweep discards every idle session and returns how many were dropped.
func (m *Sessions) Sweep(ctx context.Context) int {
	now := m.now()
	var stale []*session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if m.idle(sess, now) {
			delete(m.sessions, id)
			stale = append(stale, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range stale {
		m.expire(ctx, sess)
	}
	if len(stale) > 0 {
		m.logger.Info("idle sessions swept", "expired", len(stale), "live", m.Len())
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Len reports the number of live sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Sessions) idle(sess *session, now time.Time) bool {
	return now.Sub(sess.lastSeen) > m.opts.IdleTTL
}

func (m *Sessions) evictOldestLocked() *session {
	var oldest *session
	for _, sess := range m.sessions {
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldest = sess
		}
	}
	delete(m.sessions, oldest.id)
	return oldest
}

func (m *Sessions) expire(ctx context.Context, sess *session) {
	m.opts.OnExpire(ctx, sess.controller)
	m.logger.Info("session expired", "session_id", sess.id)
}
