package area

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/store"
)

// DataStore holds one free-form record per area. Records are created on
// first write and never deleted.
type DataStore struct {
	mu     sync.Mutex
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewDataStore(s store.Store, logger *slog.Logger) *DataStore {
	return &DataStore{store: s, logger: logger, now: time.Now}
}

// Merge overlays the non-nil fields of partial onto the stored record, stamps
// LastUpdated and returns the full result.
func (d *DataStore) Merge(ctx context.Context, areaID string, partial domain.AreaData) domain.AreaData {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.Get(ctx, areaID)
	if partial.Description != nil {
		rec.Description = ptr(*partial.Description)
	}
	if partial.Result != nil {
		rec.Result = ptr(*partial.Result)
	}
	if partial.Observation != nil {
		rec.Observation = ptr(*partial.Observation)
	}
	if partial.AttachmentCount != nil {
		rec.AttachmentCount = ptr(*partial.AttachmentCount)
	}
	rec.LastUpdated = d.now().UTC()

	store.Save(ctx, d.store, d.logger, store.PartitionAreaData, areaID, rec)
	d.logger.Debug("area data merged", "area_id", areaID)
	return rec
}

// Get returns the stored record, or an empty one carrying only AreaID.
func (d *DataStore) Get(ctx context.Context, areaID string) domain.AreaData {
	rec, ok := store.Load[domain.AreaData](ctx, d.store, d.logger, store.PartitionAreaData, areaID)
	if !ok {
		return domain.AreaData{AreaID: areaID}
	}
	rec.AreaID = areaID
	return rec
}

func ptr[T any](v T) *T { return &v }
