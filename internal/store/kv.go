package store

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Partition names. Session-scoped partitions are suffixed with the session id
// via SessionPartition and UserPartition.
const (
	PartitionDynamicAreas = "dynamic-areas"
	PartitionAreaFiles    = "area-files"
	PartitionAreaData     = "area-data"

	partitionSession = "session"
	partitionUser    = "user"

	// KeyDynamicAreaList holds the ordered list of dynamic areas.
	KeyDynamicAreaList = "list"
	// KeyCurrentUser holds the logged-in username within a user partition.
	KeyCurrentUser = "currentUser"
)

func SessionPartition(sessionID string) string { return partitionSession + ":" + sessionID }

func UserPartition(sessionID string) string { return partitionUser + ":" + sessionID }

type Status int

const (
	Found Status = iota
	Absent
	Corrupt
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case Corrupt:
		return "corrupt"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is the outcome of a read. Value is only set when Status is Found and
// is a private copy owned by the caller.
type Result struct {
	Status Status
	Value  json.RawMessage
	Err    error
}

// Decode unmarshals the value into dst. It returns false for anything other
// than a well-formed Found value.
func (r Result) Decode(dst any) bool {
	if r.Status != Found {
		return false
	}
	return json.Unmarshal(r.Value, dst) == nil
}

// Store is a string-keyed JSON value store split into named partitions.
// Reads never fail: corruption and an unavailable medium are reported through
// Result.Status instead.
type Store interface {
	Get(ctx context.Context, partition, key string) Result
	Set(ctx context.Context, partition, key string, value any) error
	Delete(ctx context.Context, partition, key string) error
	GetAll(ctx context.Context, partition string) map[string]json.RawMessage
}

// Load reads partition/key into a fresh T. Absent, corrupt and unavailable
// values all yield the zero T and false; the latter two are logged.
func Load[T any](ctx context.Context, s Store, logger *slog.Logger, partition, key string) (T, bool) {
	var v T
	res := s.Get(ctx, partition, key)
	switch res.Status {
	case Found:
		if err := json.Unmarshal(res.Value, &v); err != nil {
			logger.Warn("discarding undecodable value", "partition", partition, "key", key, "error", err)
			var zero T
			return zero, false
		}
		return v, true
	case Corrupt, Unavailable:
		logger.Warn("store read degraded", "partition", partition, "key", key, "status", res.Status.String(), "error", res.Err)
	}
	return v, false
}

// Save writes value and logs instead of failing; the caller keeps working
// from its in-memory copy when the medium is unavailable.
func Save(ctx context.Context, s Store, logger *slog.Logger, partition, key string, value any) bool {
	if err := s.Set(ctx, partition, key, value); err != nil {
		logger.Warn("store write failed", "partition", partition, "key", key, "error", err)
		return false
	}
	return true
}

func encode(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errInvalidJSON
		}
		return append(json.RawMessage(nil), raw...), nil
	}
	return json.Marshal(value)
}
