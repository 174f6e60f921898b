package store

import (
	"context"
	"encoding/json"
	"log/slog"
)

// FallbackStore mirrors every write into memory so that reads keep working
// when the primary medium is unavailable or returns corrupt data. Write
// failures on the primary are logged and absorbed.
type FallbackStore struct {
	primary Store
	mem     *MemoryStore
	logger  *slog.Logger
}

func NewFallbackStore(primary Store, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, mem: NewMemoryStore(), logger: logger}
}

func (s *FallbackStore) Get(ctx context.Context, partition, key string) Result {
	res := s.primary.Get(ctx, partition, key)
	switch res.Status {
	case Found, Absent:
		return res
	}
	s.logger.Warn("primary store read degraded, using memory copy",
		"partition", partition, "key", key, "status", res.Status.String(), "error", res.Err)
	return s.mem.Get(ctx, partition, key)
}

func (s *FallbackStore) Set(ctx context.Context, partition, key string, value any) error {
	if err := s.mem.Set(ctx, partition, key, value); err != nil {
		return err
	}
	if err := s.primary.Set(ctx, partition, key, value); err != nil {
		s.logger.Warn("primary store write failed, kept in memory", "partition", partition, "key", key, "error", err)
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, partition, key string) error {
	_ = s.mem.Delete(ctx, partition, key)
	if err := s.primary.Delete(ctx, partition, key); err != nil {
		s.logger.Warn("primary store delete failed", "partition", partition, "key", key, "error", err)
	}
	return nil
}

func (s *FallbackStore) GetAll(ctx context.Context, partition string) map[string]json.RawMessage {
	out := s.mem.GetAll(ctx, partition)
	for k, v := range s.primary.GetAll(ctx, partition) {
		out[k] = v
	}
	return out
}
