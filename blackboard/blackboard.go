package blackboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/logging"
)

// ErrNotFound is returned when the requested key has no entry.
var ErrNotFound = errors.New("blackboard entry not found")

// Entry is a versioned value on the blackboard. Entries returned from reads
// are copies; mutating them does not affect stored state. Value itself is
// stored as given, so writers should treat posted values as immutable.
type Entry struct {
	Key     string    `json:"key"`
	Value   any       `json:"value"`
	Owner   string    `json:"owner"`
	Tags    []string  `json:"tags,omitempty"`
	Version int       `json:"version"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// HasTag reports whether the entry carries the given tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (e Entry) clone() Entry {
	cp := e
	cp.Tags = append([]string(nil), e.Tags...)
	return cp
}

// Options configures a Blackboard.
type Options struct {
	Logger logging.Logger
}

// Blackboard is a concurrency-safe shared store. Writes to the same key are
// serialized internally and the later arrival wins, with the version strictly
// increasing; this is deliberate last-writer-wins semantics, appropriate
// because exactly one owning agent writes a given key in a workflow.
type Blackboard struct {
	mu      sync.RWMutex
	entries map[string]Entry
	logger  logging.Logger
}

// New constructs an empty Blackboard.
func New(optFns ...func(o *Options)) *Blackboard {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Blackboard{entries: make(map[string]Entry), logger: opts.Logger}
}

// Write creates or overwrites the entry for key, incrementing its version.
// Tags are merged into the existing tag set. The updated entry is returned.
func (b *Blackboard) Write(key string, value any, owner string, tags ...string) (Entry, error) {
	if key == "" {
		return Entry{}, errors.New("blackboard key must not be empty")
	}
	if owner == "" {
		return Entry{}, fmt.Errorf("blackboard key %q: owner must not be empty", key)
	}

	now := time.Now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[key]
	if !exists {
		entry = Entry{Key: key, Created: now}
	}
	entry.Value = value
	entry.Owner = owner
	entry.Updated = now
	entry.Version++
	entry.Tags = mergeTags(entry.Tags, tags)
	b.entries[key] = entry

	b.logger.Debug("blackboard: write", "key", key, "owner", owner, "version", entry.Version)

	return entry.clone(), nil
}

// Read returns the current entry for key or ErrNotFound.
func (b *Blackboard) Read(key string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	return entry.clone(), nil
}

// ReadMany returns an atomic snapshot of the given keys. Keys without an
// entry are simply absent from the result; callers consuming several keys
// produced together should prefer ReadMany over repeated Reads so they never
// observe a half-finished publish.
func (b *Blackboard) ReadMany(keys ...string) map[string]Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Entry, len(keys))
	for _, key := range keys {
		if entry, ok := b.entries[key]; ok {
			out[key] = entry.clone()
		}
	}
	return out
}

// QueryByTag returns all entries carrying the tag, ordered by key.
func (b *Blackboard) QueryByTag(tag string) []Entry {
	return b.query(func(e Entry) bool { return e.HasTag(tag) })
}

// QueryByOwner returns all entries written by the owner, ordered by key.
func (b *Blackboard) QueryByOwner(owner string) []Entry {
	return b.query(func(e Entry) bool { return e.Owner == owner })
}

func (b *Blackboard) query(match func(Entry) bool) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Entry
	for _, entry := range b.entries {
		if match(entry) {
			out = append(out, entry.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns all keys in lexical order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.entries))
	for key := range b.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func mergeTags(existing, extra []string) []string {
	if len(extra) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(extra))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, t := range append(append([]string{}, existing...), extra...) {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}
