package area

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/store"
)

var (
	// ErrInvalidName is returned when a dynamic area is created without a name.
	ErrInvalidName = errors.New("area name required")
	// ErrUnknownArea is returned for ids that are neither built-in nor dynamic.
	ErrUnknownArea = errors.New("unknown area")
)

const maxAreaNameLen = 200

var builtinAreas = []domain.Area{
	{ID: domain.AreaSmallMining, Name: "Pequeña Minería", Kind: domain.AreaBuiltin},
	{ID: domain.AreaBlastingService, Name: "Servicio Voladura", Kind: domain.AreaBuiltin},
	{ID: domain.AreaHauling, Name: "Arrime", Kind: domain.AreaBuiltin},
	{ID: domain.AreaNotAvailable, Name: "No disponible", Kind: domain.AreaBuiltin},
}

// IsNewAreaSentinel reports whether id is the "not available" choice that
// starts the create-new-area path.
func IsNewAreaSentinel(id string) bool {
	return id == domain.AreaNotAvailable
}

// Registry lists built-in and dynamic areas. Dynamic areas are persisted as a
// single ordered list under store.KeyDynamicAreaList.
type Registry struct {
	mu     sync.Mutex
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(s store.Store, logger *slog.Logger) *Registry {
	return &Registry{store: s, logger: logger, now: time.Now}
}

// ListAreas returns the built-ins in their fixed order followed by dynamic
// areas in creation order.
func (r *Registry) ListAreas(ctx context.Context) []domain.Area {
	dynamic := r.DynamicAreas(ctx)
	areas := make([]domain.Area, 0, len(builtinAreas)+len(dynamic))
	areas = append(areas, builtinAreas...)
	return append(areas, dynamic...)
}

func (r *Registry) DynamicAreas(ctx context.Context) []domain.Area {
	areas, _ := store.Load[[]domain.Area](ctx, r.store, r.logger, store.PartitionDynamicAreas, store.KeyDynamicAreaList)
	return areas
}

// CreateDynamicArea appends a new area with a generated id and persists the
// list immediately. Creating the same name twice yields two areas.
func (r *Registry) CreateDynamicArea(ctx context.Context, name string) (domain.Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Area{}, ErrInvalidName
	}
	if len(name) > maxAreaNameLen {
		return domain.Area{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxAreaNameLen)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	created := domain.Area{
		ID:        newDynamicID(now),
		Name:      name,
		Kind:      domain.AreaDynamic,
		CreatedAt: now.UTC(),
	}

	areas := append(r.DynamicAreas(ctx), created)
	store.Save(ctx, r.store, r.logger, store.PartitionDynamicAreas, store.KeyDynamicAreaList, areas)
	r.logger.Info("dynamic area created", "area_id", created.ID, "name", created.Name)
	return created, nil
}

// Get looks id up across built-in and dynamic areas.
func (r *Registry) Get(ctx context.Context, id string) (domain.Area, error) {
	for _, a := range r.ListAreas(ctx) {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Area{}, fmt.Errorf("%w: %q", ErrUnknownArea, id)
}

// ResolveAreaName returns the display name for id, or id itself when unknown.
func (r *Registry) ResolveAreaName(ctx context.Context, id string) string {
	a, err := r.Get(ctx, id)
	if err != nil {
		return id
	}
	return a.Name
}

// newDynamicID combines a base36 millisecond timestamp with a random suffix.
func newDynamicID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return "dynamic-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix
}
