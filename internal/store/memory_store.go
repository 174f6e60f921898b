package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errInvalidJSON = errors.New("value is not valid JSON")

// MemoryStore keeps partitions in process memory. It is the fallback when no
// database is available and the default in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, partition, key string) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[partition][key]
	if !ok {
		return Result{Status: Absent}
	}
	if !json.Valid(raw) {
		return Result{Status: Corrupt, Err: errInvalidJSON}
	}
	return Result{Status: Found, Value: append(json.RawMessage(nil), raw...)}
}

func (s *MemoryStore) Set(_ context.Context, partition, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[partition]
	if !ok {
		p = make(map[string][]byte)
		s.data[partition] = p
	}
	p[key] = raw
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, partition, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[partition], key)
	return nil
}

func (s *MemoryStore) GetAll(_ context.Context, partition string) map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.data[partition]))
	for k, raw := range s.data[partition] {
		if !json.Valid(raw) {
			continue
		}
		out[k] = append(json.RawMessage(nil), raw...)
	}
	return out
}

// setRaw stores bytes as-is, bypassing validation. Tests use it to simulate a
// corrupted medium.
func (s *MemoryStore) setRaw(partition, key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[partition] == nil {
		s.data[partition] = make(map[string][]byte)
	}
	s.data[partition][key] = raw
}
