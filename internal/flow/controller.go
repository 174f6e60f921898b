package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/areawizard/internal/notify"
	"github.com/vbonduro/areawizard/internal/store"
)

// ScreenChange is published after every transition, whether it came from
// NavigateTo, ShowScreen or Back.
type ScreenChange struct {
	Screen   Screen
	Previous Screen
	Data     Data
}

type Observer interface {
	ScreenChanged(ScreenChange)
}

type ObserverFunc func(ScreenChange)

func (f ObserverFunc) ScreenChanged(c ScreenChange) { f(c) }

// HistoryEntry records one navigation and the payloads it carried.
type HistoryEntry struct {
	Screen  Screen
	Payload Data
}

// Controller is the per-session wizard state machine. Screen payloads live in
// the session partition of the store, one key per screen; the current screen
// and history are held in memory for the lifetime of the session.
type Controller struct {
	mu sync.Mutex
	// op serializes whole wizard operations (check, store, navigate) of one
	// session; mu only guards the fields below.
	op        sync.Mutex
	store     store.Store
	sessionID string
	logger    *slog.Logger
	current   Screen
	history   []HistoryEntry
	observers notify.Hub[ScreenChange]
}

func NewController(s store.Store, sessionID string, logger *slog.Logger) *Controller {
	return &Controller{
		store:     s,
		sessionID: sessionID,
		logger:    logger.With("session_id", sessionID),
		current:   ScreenLogin,
		history:   []HistoryEntry{{Screen: ScreenLogin}},
	}
}

func (c *Controller) SessionID() string { return c.sessionID }

// Subscribe registers o for screen change notifications.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	return c.observers.Subscribe(o.ScreenChanged)
}

// Exclusive runs fn while holding the session operation lock. fn may call
// any other Controller method but must not call Exclusive again.
func (c *Controller) Exclusive(fn func() error) error {
	c.op.Lock()
	defer c.op.Unlock()
	return fn()
}

func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// NavigateTo switches to screen, storing each payload under the screen key it
// is tagged with. An invalid target or payload tag leaves the state untouched
// and publishes nothing.
func (c *Controller) NavigateTo(ctx context.Context, screen Screen, payloads ...Payload) error {
	if !screen.Valid() {
		c.logger.Error("navigation to unknown screen rejected", "screen", string(screen))
		return fmt.Errorf("%w: %q", ErrInvalidScreen, screen)
	}

	tagged := make(Data, len(payloads))
	for _, p := range payloads {
		if !p.Screen().Valid() {
			c.logger.Error("payload for unknown screen rejected", "screen", string(p.Screen()))
			return fmt.Errorf("%w: payload tagged %q", ErrInvalidScreen, p.Screen())
		}
		rec, err := ToRecord(p)
		if err != nil {
			return err
		}
		if len(rec) > 0 {
			tagged[p.Screen()] = rec
		}
	}

	c.mu.Lock()
	for key, rec := range tagged {
		store.Save(ctx, c.store, c.logger, c.partition(), string(key), rec)
	}
	previous := c.current
	c.current = screen
	c.history = append(c.history, HistoryEntry{Screen: screen, Payload: tagged})
	c.mu.Unlock()

	c.logger.Info("navigated", "from", string(previous), "to", string(screen))
	c.publish(ctx, screen, previous)
	return nil
}

// ShowScreen switches the visible screen without recording history, as a
// browser back/forward action would, and still publishes the change.
func (c *Controller) ShowScreen(ctx context.Context, screen Screen) error {
	if !screen.Valid() {
		c.logger.Error("show of unknown screen rejected", "screen", string(screen))
		return fmt.Errorf("%w: %q", ErrInvalidScreen, screen)
	}

	c.mu.Lock()
	previous := c.current
	c.current = screen
	c.mu.Unlock()

	c.publish(ctx, screen, previous)
	return nil
}

// Back returns to the screen before the latest navigation. It returns false
// when there is nowhere to go back to.
func (c *Controller) Back(ctx context.Context) (Screen, bool) {
	c.mu.Lock()
	if len(c.history) < 2 {
		current := c.current
		c.mu.Unlock()
		return current, false
	}
	c.history = c.history[:len(c.history)-1]
	previous := c.current
	c.current = c.history[len(c.history)-1].Screen
	current := c.current
	c.mu.Unlock()

	c.publish(ctx, current, previous)
	return current, true
}

// ScreenData returns the stored record for screen, or an empty record.
func (c *Controller) ScreenData(ctx context.Context, screen Screen) Record {
	if !screen.Valid() {
		return Record{}
	}
	rec, ok := store.Load[Record](ctx, c.store, c.logger, c.partition(), string(screen))
	if !ok || rec == nil {
		return Record{}
	}
	return rec
}

// SaveScreenData shallow-merges partial into the stored record for screen.
func (c *Controller) SaveScreenData(ctx context.Context, screen Screen, partial Record) error {
	if !screen.Valid() {
		c.logger.Error("save for unknown screen rejected", "screen", string(screen))
		return fmt.Errorf("%w: %q", ErrInvalidScreen, screen)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.ScreenData(ctx, screen)
	for k, v := range partial {
		rec[k] = v
	}
	store.Save(ctx, c.store, c.logger, c.partition(), string(screen), rec)
	return nil
}

// Save merges a typed payload into the record of the screen it is tagged with.
func (c *Controller) Save(ctx context.Context, p Payload) error {
	rec, err := ToRecord(p)
	if err != nil {
		return err
	}
	return c.SaveScreenData(ctx, p.Screen(), rec)
}

// ClearScreenData drops the stored record for screen.
func (c *Controller) ClearScreenData(ctx context.Context, screen Screen) error {
	if !screen.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidScreen, screen)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, c.partition(), string(screen)); err != nil {
		c.logger.Warn("failed to clear screen data", "screen", string(screen), "error", err)
	}
	return nil
}

// AllData returns every stored screen record. Keys that are not screen ids
// and undecodable values are skipped.
func (c *Controller) AllData(ctx context.Context) Data {
	out := make(Data)
	for key, raw := range c.store.GetAll(ctx, c.partition()) {
		screen := Screen(key)
		if !screen.Valid() {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			c.logger.Warn("discarding unreadable screen data", "screen", key, "error", err)
			continue
		}
		out[screen] = rec
	}
	return out
}

func (c *Controller) SetCurrentUser(ctx context.Context, username string) {
	store.Save(ctx, c.store, c.logger, store.UserPartition(c.sessionID), store.KeyCurrentUser, username)
}

func (c *Controller) CurrentUser(ctx context.Context) string {
	user, _ := store.Load[string](ctx, c.store, c.logger, store.UserPartition(c.sessionID), store.KeyCurrentUser)
	return user
}

// Restart clears all session payloads and the current user, resets history
// and navigates back to login.
func (c *Controller) Restart(ctx context.Context) {
	c.mu.Lock()
	for key := range c.store.GetAll(ctx, c.partition()) {
		if err := c.store.Delete(ctx, c.partition(), key); err != nil {
			c.logger.Warn("failed to clear screen data", "screen", key, "error", err)
		}
	}
	if err := c.store.Delete(ctx, store.UserPartition(c.sessionID), store.KeyCurrentUser); err != nil {
		c.logger.Warn("failed to clear current user", "error", err)
	}
	previous := c.current
	c.current = ScreenLogin
	c.history = []HistoryEntry{{Screen: ScreenLogin}}
	c.mu.Unlock()

	c.logger.Info("session restarted")
	c.publish(ctx, ScreenLogin, previous)
}

func (c *Controller) partition() string {
	return store.SessionPartition(c.sessionID)
}

func (c *Controller) publish(ctx context.Context, screen, previous Screen) {
	c.observers.Publish(ScreenChange{Screen: screen, Previous: previous, Data: c.AllData(ctx)})
}
