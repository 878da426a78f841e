package knowledge

import (
	"sync"
	"time"

	"github.com/hupe1980/conductor/core"
)

// Options configures an InMemoryStore.
type Options struct {
	// DefaultTTL tags every Put entry with a time-to-live. Zero disables
	// expiry for plain Put calls; PutTTL always applies its own TTL.
	DefaultTTL time.Duration

	// Clock overrides the time source (tests).
	Clock func() time.Time
}

// InMemoryStore is a volatile core.KnowledgeStore implementation holding the
// run's shared findings in a process local map. All mutations are serialized
// by a single mutex so readers never observe a partially applied write, and
// the version number for a given key is strictly increasing within one run.
// Expired entries are lazily evicted on access.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]core.KnowledgeEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryStore constructs an empty in-memory knowledge store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{Clock: time.Now}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		entries: make(map[string]core.KnowledgeEntry),
		ttl:     opts.DefaultTTL,
		now:     opts.Clock,
	}
}

// Put commits a new version for key, returning the committed version number.
// Two concurrent writers to the same key serialize; each successful write
// increments the version exactly once (last committed wins).
func (s *InMemoryStore) Put(key string, value any, writer string) (uint64, error) {
	return s.PutTTL(key, value, writer, s.ttl)
}

// PutTTL commits a new version tagged with a time-to-live after which the
// entry is lazily evicted. A zero ttl means the entry never expires.
func (s *InMemoryStore) PutTTL(key string, value any, writer string, ttl time.Duration) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, _ := s.versionLocked(key)
	version := seq + 1
	s.commitLocked(key, value, writer, version, ttl)

	return version, nil
}

// PutIfVersion commits only when the committed version for key equals
// expected (0 meaning "key absent"); otherwise it fails with
// core.ErrVersionConflict without retrying.
func (s *InMemoryStore) PutIfVersion(key string, value any, writer string, expected uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, visible := s.versionLocked(key)
	if visible != expected {
		return visible, core.ErrVersionConflict
	}
	version := seq + 1
	s.commitLocked(key, value, writer, version, s.ttl)

	return version, nil
}

// Get returns the most recent committed entry for key. Expired entries are
// evicted and reported as absent.
func (s *InMemoryStore) Get(key string) (core.KnowledgeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return core.KnowledgeEntry{}, false
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return core.KnowledgeEntry{}, false
	}

	return entry, true
}

// Snapshot returns an immutable copy of all live entries for diffing across
// refinement rounds.
func (s *InMemoryStore) Snapshot() map[string]core.KnowledgeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := make(map[string]core.KnowledgeEntry, len(s.entries))
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			continue
		}
		snap[k] = e
	}

	return snap
}

// Len returns the number of live entries.
func (s *InMemoryStore) Len() int {
	return len(s.Snapshot())
}

// versionLocked returns the version sequence and the reader-visible version
// for key. An expired entry is evicted and invisible to readers (visible 0)
// but its sequence number is retained so versions stay strictly increasing
// across an expiry within the same run.
func (s *InMemoryStore) versionLocked(key string) (seq, visible uint64) {
	entry, ok := s.entries[key]
	if !ok {
		return 0, 0
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return entry.Version, 0
	}
	return entry.Version, entry.Version
}

func (s *InMemoryStore) commitLocked(key string, value any, writer string, version uint64, ttl time.Duration) {
	entry := core.KnowledgeEntry{
		Key:     key,
		Value:   value,
		Writer:  writer,
		Version: version,
	}
	if ttl > 0 {
		entry.Expiry = s.now().Add(ttl)
	}
	s.entries[key] = entry
}
