package area

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/notify"
	"github.com/vbonduro/areawizard/internal/store"
)

// ErrInvalidAttachment is returned when attachment metadata fails validation.
var ErrInvalidAttachment = errors.New("invalid attachment")

type EventType string

const (
	AttachmentAdded   EventType = "attachment_added"
	AttachmentRemoved EventType = "attachment_removed"
)

type AttachmentEvent struct {
	Type       EventType
	AreaID     string
	Attachment domain.Attachment
}

// NewAttachment is the caller-supplied part of an attachment record. The
// ledger assigns ID, AreaID and SavedAt.
type NewAttachment struct {
	Name       string
	Kind       domain.AttachmentKind
	MimeType   string
	SizeBytes  int64
	StorageKey string
}

// Ledger keeps an ordered list of attachment metadata per area. Each mutation
// rewrites the whole area list; the mutex serializes those rewrites within
// the process.
type Ledger struct {
	mu     sync.Mutex
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	events notify.Hub[AttachmentEvent]
}

func NewLedger(s store.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: s, logger: logger, now: time.Now}
}

// Subscribe registers fn for added/removed notifications.
func (l *Ledger) Subscribe(fn func(AttachmentEvent)) (unsubscribe func()) {
	return l.events.Subscribe(fn)
}

func (l *Ledger) Add(ctx context.Context, areaID string, in NewAttachment) (domain.Attachment, error) {
	if areaID == "" {
		return domain.Attachment{}, fmt.Errorf("%w: area id required", ErrInvalidAttachment)
	}
	if !in.Kind.Valid() {
		return domain.Attachment{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAttachment, in.Kind)
	}
	if in.SizeBytes < 0 {
		return domain.Attachment{}, fmt.Errorf("%w: negative size", ErrInvalidAttachment)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Attachment{}, fmt.Errorf("%w: name required", ErrInvalidAttachment)
	}

	l.mu.Lock()
	rec := domain.Attachment{
		ID:         uuid.NewString(),
		AreaID:     areaID,
		Name:       name,
		Kind:       in.Kind,
		MimeType:   in.MimeType,
		SizeBytes:  in.SizeBytes,
		StorageKey: in.StorageKey,
		SavedAt:    l.now().UTC(),
	}
	list := append(l.list(ctx, areaID), rec)
	l.save(ctx, areaID, list)
	l.mu.Unlock()

	l.logger.Debug("attachment added", "area_id", areaID, "attachment_id", rec.ID, "kind", rec.Kind, "bytes", rec.SizeBytes)
	l.events.Publish(AttachmentEvent{Type: AttachmentAdded, AreaID: areaID, Attachment: rec})
	return rec, nil
}

// Remove drops attachmentID from the area. It returns the removed record and
// false when nothing matched.
func (l *Ledger) Remove(ctx context.Context, areaID, attachmentID string) (domain.Attachment, bool) {
	l.mu.Lock()
	list := l.list(ctx, areaID)
	kept := list[:0:0]
	var removed domain.Attachment
	found := false
	for _, a := range list {
		if a.ID == attachmentID && !found {
			removed, found = a, true
			continue
		}
		kept = append(kept, a)
	}
	if found {
		l.save(ctx, areaID, kept)
	}
	l.mu.Unlock()

	if !found {
		return domain.Attachment{}, false
	}
	l.logger.Debug("attachment removed", "area_id", areaID, "attachment_id", attachmentID)
	l.events.Publish(AttachmentEvent{Type: AttachmentRemoved, AreaID: areaID, Attachment: removed})
	return removed, true
}

// List returns the area's attachments in insertion order.
func (l *Ledger) List(ctx context.Context, areaID string) []domain.Attachment {
	return l.list(ctx, areaID)
}

func (l *Ledger) Get(ctx context.Context, areaID, attachmentID string) (domain.Attachment, bool) {
	for _, a := range l.list(ctx, areaID) {
		if a.ID == attachmentID {
			return a, true
		}
	}
	return domain.Attachment{}, false
}

func (l *Ledger) Stats(ctx context.Context, areaID string) domain.AttachmentStats {
	stats := domain.AttachmentStats{CountByKind: make(map[domain.AttachmentKind]int)}
	for _, a := range l.list(ctx, areaID) {
		stats.Count++
		stats.TotalSizeBytes += a.SizeBytes
		stats.CountByKind[a.Kind]++
	}
	return stats
}

// Move appends every attachment of from onto to, rewriting their AreaID, and
// clears from. It is used to promote uploads made under a temporary id once
// the permanent area exists. It returns the number of records moved.
func (l *Ledger) Move(ctx context.Context, from, to string) int {
	if from == to || to == "" {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	moving := l.list(ctx, from)
	if len(moving) == 0 {
		return 0
	}
	dest := l.list(ctx, to)
	for _, a := range moving {
		a.AreaID = to
		dest = append(dest, a)
	}
	l.save(ctx, to, dest)
	l.clear(ctx, from)

	l.logger.Info("attachments moved", "from_area_id", from, "to_area_id", to, "count", len(moving))
	return len(moving)
}

// Clear removes every attachment record for the area.
func (l *Ledger) Clear(ctx context.Context, areaID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clear(ctx, areaID)
}

func (l *Ledger) clear(ctx context.Context, areaID string) {
	if err := l.store.Delete(ctx, store.PartitionAreaFiles, areaID); err != nil {
		l.logger.Warn("failed to clear area files", "area_id", areaID, "error", err)
	}
}

func (l *Ledger) list(ctx context.Context, areaID string) []domain.Attachment {
	list, _ := store.Load[[]domain.Attachment](ctx, l.store, l.logger, store.PartitionAreaFiles, areaID)
	return list
}

func (l *Ledger) save(ctx context.Context, areaID string, list []domain.Attachment) {
	store.Save(ctx, l.store, l.logger, store.PartitionAreaFiles, areaID, list)
}
