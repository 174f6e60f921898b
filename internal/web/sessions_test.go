package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/areawizard/internal/flow"
	"github.com/vbonduro/areawizard/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSessions(t *testing.T, opts SessionOptions) (*Sessions, *fakeClock, *[]string) {
	t.Helper()
	expired := &[]string{}
	opts.OnExpire = func(ctx context.Context, c *flow.Controller) {
		*expired = append(*expired, c.SessionID())
		c.Restart(ctx)
	}
	m := NewSessions(store.NewMemoryStore(), opts, slog.Default())
	clock := &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	m.now = clock.now
	return m, clock, expired
}

// visit issues a request carrying cookie (if any) and returns the session
// and the cookie the server handed back, or the one sent.
func visit(m *Sessions, cookie string) (*session, string) {
	r := httptest.NewRequest(http.MethodGet, "/wizard", nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: sessionCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	sess := m.forRequest(w, r)
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return sess, c.Value
		}
	}
	return sess, cookie
}

func TestSessionsReuseCookie(t *testing.T) {
	m, _, _ := newTestSessions(t, SessionOptions{})

	first, cookie := visit(m, "")
	again, same := visit(m, cookie)

	assert.Same(t, first, again)
	assert.Equal(t, cookie, same)
	assert.Equal(t, 1, m.Len())
}

func TestSessionsAreBounded(t *testing.T) {
	m, clock, expired := newTestSessions(t, SessionOptions{MaxSessions: 3})

	_, oldest := visit(m, "")
	for range 20 {
		clock.advance(time.Second)
		visit(m, "")
	}

	assert.Equal(t, 3, m.Len())
	assert.Len(t, *expired, 18)
	assert.Equal(t, oldest, (*expired)[0])
}

func TestSessionsSweepIdle(t *testing.T) {
	m, clock, expired := newTestSessions(t, SessionOptions{IdleTTL: time.Minute})
	ctx := context.Background()

	idle, idleCookie := visit(m, "")
	idle.controller.SetCurrentUser(ctx, "user")
	require.NoError(t, idle.controller.NavigateTo(ctx, flow.ScreenAreaSelection, flow.LoginPayload{Username: "user"}))
	_, activeCookie := visit(m, "")

	clock.advance(45 * time.Second)
	visit(m, activeCookie)
	clock.advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep(ctx))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{idleCookie}, *expired)
	assert.Empty(t, idle.controller.CurrentUser(ctx))
	assert.Empty(t, idle.controller.AllData(ctx))

	assert.Zero(t, m.Sweep(ctx))
}

func TestSessionsExpiredCookieStartsOver(t *testing.T) {
	m, clock, expired := newTestSessions(t, SessionOptions{IdleTTL: time.Minute})

	old, cookie := visit(m, "")
	clock.advance(2 * time.Minute)
	fresh, newCookie := visit(m, cookie)

	assert.NotSame(t, old, fresh)
	assert.NotEqual(t, cookie, newCookie)
	assert.Equal(t, []string{cookie}, *expired)
	assert.Equal(t, 1, m.Len())
}

func TestSessionsRunStopsWithContext(t *testing.T) {
	m, _, _ := newTestSessions(t, SessionOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
