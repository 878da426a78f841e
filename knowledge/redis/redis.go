// Package redis provides a Redis backed core.KnowledgeStore for callers that
// need run findings to survive the coordinating process (inspection after a
// crash, off-process tooling). The engine itself never requires durability;
// wiring this backend is purely a deployment decision made via the
// coordinator's KnowledgeFactory option.
//
// Each run's entries live under a run-scoped key prefix so the no-cross-run
// leakage guarantee of the in-memory store is preserved. Versioning and
// optimistic writes are implemented with server side Lua scripts to keep the
// single-writer-per-key discipline without client side locking.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/conductor/core"
)

// put commits a new version regardless of the current one. KEYS[1] is the
// entry hash; ARGV: value, writer, ttl millis (0 = none).
var putScript = redis.NewScript(`
local version = (tonumber(redis.call('HGET', KEYS[1], 'version')) or 0) + 1
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'writer', ARGV[2], 'version', version)
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
else
  redis.call('PERSIST', KEYS[1])
end
return version
`)

// putIfVersion commits only when the stored version matches ARGV[4]; returns
// {0, current} on conflict and {1, new} on success.
var putIfVersionScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'version')) or 0
if current ~= tonumber(ARGV[4]) then
  return {0, current}
end
local version = current + 1
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'writer', ARGV[2], 'version', version)
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
else
  redis.call('PERSIST', KEYS[1])
end
return {1, version}
`)

// Options configures a Store.
type Options struct {
	// KeyPrefix namespaces all entries; the run identifier is appended so two
	// runs sharing one Redis never observe each other's findings.
	KeyPrefix string

	// DefaultTTL tags every Put entry with a time-to-live. Zero keeps entries
	// until the run's keys are dropped.
	DefaultTTL time.Duration

	// Context is used for all store operations; defaults to
	// context.Background(). The core.KnowledgeStore contract is synchronous
	// and context-free, so cancellation is owned by the wiring layer.
	Context context.Context
}

// Store is a durable core.KnowledgeStore backed by Redis. Values are JSON
// encoded; non-JSON-encodable values fail the write.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

// New constructs a run-scoped Store on top of an existing Redis client.
func New(client redis.UniversalClient, runID string, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: "conductor", Context: context.Background()}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{
		client: client,
		prefix: fmt.Sprintf("%s:%s:", opts.KeyPrefix, runID),
		ttl:    opts.DefaultTTL,
		ctx:    opts.Context,
	}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Put commits a new version for key and returns the version number.
func (s *Store) Put(key string, value any, writer string) (uint64, error) {
	return s.PutTTL(key, value, writer, s.ttl)
}

// PutTTL commits a new version tagged with a time-to-live.
func (s *Store) PutTTL(key string, value any, writer string, ttl time.Duration) (uint64, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("failed to encode knowledge value: %w", err)
	}

	version, err := putScript.Run(s.ctx, s.client, []string{s.key(key)}, raw, writer, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to write knowledge entry: %w", err)
	}

	return uint64(version), nil
}

// PutIfVersion commits only when the committed version equals expected,
// otherwise it fails with core.ErrVersionConflict.
func (s *Store) PutIfVersion(key string, value any, writer string, expected uint64) (uint64, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("failed to encode knowledge value: %w", err)
	}

	res, err := putIfVersionScript.Run(s.ctx, s.client, []string{s.key(key)}, raw, writer, s.ttl.Milliseconds(), expected).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to write knowledge entry: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected script reply of length %d", len(res))
	}
	if res[0] == 0 {
		return uint64(res[1]), core.ErrVersionConflict
	}

	return uint64(res[1]), nil
}

// Get returns the most recent committed entry for key. Redis owns TTL expiry,
// so an expired entry is simply absent.
func (s *Store) Get(key string) (core.KnowledgeEntry, bool) {
	fields, err := s.client.HGetAll(s.ctx, s.key(key)).Result()
	if err != nil || len(fields) == 0 {
		return core.KnowledgeEntry{}, false
	}

	entry, err := s.decode(key, fields)
	if err != nil {
		return core.KnowledgeEntry{}, false
	}

	return entry, true
}

// Snapshot scans the run's key space and returns a copy of all live entries.
func (s *Store) Snapshot() map[string]core.KnowledgeEntry {
	snap := make(map[string]core.KnowledgeEntry)

	iter := s.client.Scan(s.ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		full := iter.Val()
		key := full[len(s.prefix):]
		fields, err := s.client.HGetAll(s.ctx, full).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		entry, err := s.decode(key, fields)
		if err != nil {
			continue
		}
		snap[key] = entry
	}

	return snap
}

// Drop removes every entry of the run. Call it when the run's findings are no
// longer needed; entries with a TTL expire on their own.
func (s *Store) Drop() error {
	iter := s.client.Scan(s.ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		if err := s.client.Del(s.ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to drop knowledge entries: %w", err)
		}
	}
	return iter.Err()
}

func (s *Store) decode(key string, fields map[string]string) (core.KnowledgeEntry, error) {
	var value any
	if err := json.Unmarshal([]byte(fields["value"]), &value); err != nil {
		return core.KnowledgeEntry{}, fmt.Errorf("failed to decode knowledge value: %w", err)
	}

	var version uint64
	if _, err := fmt.Sscanf(fields["version"], "%d", &version); err != nil {
		return core.KnowledgeEntry{}, fmt.Errorf("failed to decode knowledge version: %w", err)
	}

	entry := core.KnowledgeEntry{
		Key:     key,
		Value:   value,
		Writer:  fields["writer"],
		Version: version,
	}

	if ttl, err := s.client.PTTL(s.ctx, s.key(key)).Result(); err == nil && ttl > 0 {
		entry.Expiry = time.Now().Add(ttl)
	}

	return entry, nil
}
