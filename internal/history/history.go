// Package history keeps each user's calorie lookup history in its own durable namespace.
//
// At most one namespace is active at a time. The active namespace is loaded into
// memory on login and evicted on logout; durable data is only ever replaced
// whole, never deleted by an eviction.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/mealtrack/internal/metrics"
	"github.com/rcliao/mealtrack/internal/model"
	"github.com/rcliao/mealtrack/internal/store"
)

// SchemaVersion is written with every namespace blob. Blobs with any other version load as empty.
const SchemaVersion = 1

// ErrEmptyNamespace is returned when a namespace is requested for an empty email.
var ErrEmptyNamespace = errors.New("history: empty namespace key")

type namespaceBlob struct {
	Records       []model.HistoryRecord `json:"records"`
	SchemaVersion int                   `json:"schemaVersion"`
}

// Cache is the in-memory view of the active namespace.
type Cache struct {
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
	newID   func(time.Time) string

	mu      sync.Mutex
	active  string
	records []model.HistoryRecord
	// issued and applied order load/evict calls so the last one issued wins.
	issued  uint64
	applied uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(c *Cache) { c.newID = fn }
}

// WithMetrics records mutations on r.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Cache) { c.metrics = r }
}

// New creates a Cache with no active namespace.
func New(s store.Store, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		store:   s,
		logger:  logger,
		metrics: metrics.Nop{},
		now:     time.Now,
	}
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	c.newID = func(t time.Time) string {
		return ulid.MustNew(ulid.Timestamp(t), entropy).String()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespace key for an email.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Active returns the active namespace key, or "" when none is loaded.
func (c *Cache) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Records returns a copy of the active sequence, most recent first.
func (c *Cache) Records() []model.HistoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

// LoadNamespace makes email's namespace active. Loading the namespace that is already
// active is a no-op. Missing or unreadable blobs load as an empty sequence.
//
// Switching to another key drops the previous namespace from memory first, so a failed
// or empty load leaves no namespace active rather than the old one.
func (c *Cache) LoadNamespace(ctx context.Context, email string) error {
	key := Key(email)

	c.mu.Lock()
	if key != "" && c.active == key && c.issued == c.applied {
		c.mu.Unlock()
		return nil
	}
	c.issued++
	ticket := c.issued
	if c.active != key {
		c.active = ""
		c.records = nil
	}
	if key == "" {
		c.applied = ticket
		c.mu.Unlock()
		return ErrEmptyNamespace
	}
	c.mu.Unlock()

	records, err := c.read(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket < c.applied {
		c.logger.Debug("discarding superseded namespace load", "ns", key)
		return err
	}
	c.applied = ticket
	if err != nil {
		c.active = ""
		c.records = nil
		c.logger.Warn("history namespace load failed", "ns", key, "error", err)
		return err
	}
	c.active = key
	c.records = records
	c.logger.Debug("history namespace loaded", "ns", key, "records", len(records))
	return nil
}

// EvictNamespace drops the active namespace from memory. Durable data is untouched.
func (c *Cache) EvictNamespace() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.issued++
	c.applied = c.issued
	if c.active != "" {
		c.logger.Debug("history namespace evicted", "ns", c.active)
	}
	c.active = ""
	c.records = nil
}

// Add stores result as a new record at the front of the active namespace.
// With no active namespace it logs a warning and returns nil, nil.
func (c *Cache) Add(ctx context.Context, result model.CaloriesResult) (*model.HistoryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		c.logger.Warn("history add ignored: no active namespace", "dish", result.DishName)
		return nil, nil
	}

	now := c.now()
	rec := model.HistoryRecord{
		CaloriesResult: result,
		ID:             c.newID(now),
		Timestamp:      now,
	}
	next := make([]model.HistoryRecord, 0, len(c.records)+1)
	next = append(next, rec)
	next = append(next, c.records...)

	if err := c.writeLocked(ctx, next); err != nil {
		return nil, err
	}
	c.records = next
	c.metrics.RecordHistoryMutation("add")
	return &rec, nil
}

// Remove deletes the record with id from the active namespace.
// It reports whether a record was removed.
func (c *Cache) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		c.logger.Warn("history remove ignored: no active namespace", "id", id)
		return false, nil
	}
	idx := slices.IndexFunc(c.records, func(r model.HistoryRecord) bool { return r.ID == id })
	if idx < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(c.records), idx, idx+1)
	if err := c.writeLocked(ctx, next); err != nil {
		return false, err
	}
	c.records = next
	c.metrics.RecordHistoryMutation("remove")
	return true, nil
}

// Clear empties the active namespace and persists the empty sequence, so the
// cleared records do not come back on the next load.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		c.logger.Warn("history clear ignored: no active namespace")
		return nil
	}
	next := []model.HistoryRecord{}
	if err := c.writeLocked(ctx, next); err != nil {
		return err
	}
	c.records = next
	c.metrics.RecordHistoryMutation("clear")
	return nil
}

// Namespaces lists the namespace keys stored on this device.
func (c *Cache) Namespaces(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx, store.RegionHistory)
}

func (c *Cache) read(ctx context.Context, key string) ([]model.HistoryRecord, error) {
	data, err := c.store.Get(ctx, store.RegionHistory, key)
	if errors.Is(err, store.ErrNotFound) {
		return []model.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read namespace %s: %w", key, err)
	}

	var blob namespaceBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		c.logger.Warn("discarding corrupt history namespace", "ns", key, "error", err)
		return []model.HistoryRecord{}, nil
	}
	if blob.SchemaVersion != SchemaVersion {
		c.logger.Warn("discarding history namespace with unknown schema version",
			"ns", key, "schema_version", blob.SchemaVersion)
		return []model.HistoryRecord{}, nil
	}
	if blob.Records == nil {
		blob.Records = []model.HistoryRecord{}
	}
	return blob.Records, nil
}

func (c *Cache) writeLocked(ctx context.Context, records []model.HistoryRecord) error {
	data, err := json.Marshal(namespaceBlob{Records: records, SchemaVersion: SchemaVersion})
	if err != nil {
		return fmt.Errorf("encode namespace %s: %w", c.active, err)
	}
	if err := c.store.Put(ctx, store.RegionHistory, c.active, data); err != nil {
		return fmt.Errorf("persist namespace %s: %w", c.active, err)
	}
	return nil
}
