package core

import (
	"errors"
	"time"
)

// ErrVersionConflict is returned by optimistic knowledge writes when the
// expected version no longer matches the committed one. The store never
// retries; callers retry or abort per their own policy.
var ErrVersionConflict = errors.New("knowledge version conflict")

// KnowledgeEntry is a versioned fact in the run-scoped shared store. Within
// one run the version for a given key is strictly increasing; readers always
// observe the highest committed version at time of read.
type KnowledgeEntry struct {
	Key     string    `json:"key"`
	Value   any       `json:"value"`
	Writer  string    `json:"writer"`
	Version uint64    `json:"version"`
	Expiry  time.Time `json:"expiry,omitempty"` // zero value means no TTL
}

// Expired reports whether the entry's TTL elapsed relative to now.
func (e KnowledgeEntry) Expired(now time.Time) bool {
	return !e.Expiry.IsZero() && now.After(e.Expiry)
}

// KnowledgeStore is the shared blackboard for cross-agent findings within one
// run. All mutations are serialized internally; reads never observe a
// partially applied write. Entries tagged with a TTL are lazily evicted on
// access. Implementations must be safe for concurrent use by all agents of a
// run.
//
// Durable backends (Redis, SQL, ...) live in sub-packages of knowledge; the
// engine only depends on this contract.
type KnowledgeStore interface {
	// Put commits a new version for key and returns the version number.
	Put(key string, value any, writer string) (uint64, error)

	// PutTTL behaves like Put but tags the entry with a time-to-live after
	// which it is lazily evicted.
	PutTTL(key string, value any, writer string, ttl time.Duration) (uint64, error)

	// PutIfVersion commits only when the currently committed version equals
	// expected (0 meaning "key absent"); otherwise it fails with
	// ErrVersionConflict.
	PutIfVersion(key string, value any, writer string, expected uint64) (uint64, error)

	// Get returns the most recent committed entry for key, or false when the
	// key is absent or its TTL elapsed.
	Get(key string) (KnowledgeEntry, bool)

	// Snapshot returns an immutable copy of all live entries, used for
	// diffing across refinement rounds.
	Snapshot() map[string]KnowledgeEntry
}

// KnowledgeFactory produces a fresh run-scoped KnowledgeStore. The coordinator
// calls it once per run so findings never leak across runs.
type KnowledgeFactory func(runID string) KnowledgeStore
