package history

import (
	"cmp"
	"context"
	"slices"

	"github.com/rcliao/mealtrack/internal/model"
)

// Export returns the active namespace's records, most recent first.
func (c *Cache) Export() []model.HistoryRecord {
	return c.Records()
}

// Import merges records into the active namespace. Records whose id is already present
// are skipped; records without an id or timestamp get fresh ones. The merged sequence is
// ordered by timestamp, newest first. Returns the number of records added.
func (c *Cache) Import(ctx context.Context, records []model.HistoryRecord) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		c.logger.Warn("history import ignored: no active namespace", "records", len(records))
		return 0, nil
	}

	seen := make(map[string]bool, len(c.records))
	for _, r := range c.records {
		seen[r.ID] = true
	}

	next := slices.Clone(c.records)
	imported := 0
	for _, r := range records {
		if r.Timestamp.IsZero() {
			r.Timestamp = c.now()
		}
		if r.ID == "" {
			r.ID = c.newID(r.Timestamp)
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		next = append(next, r)
		imported++
	}
	if imported == 0 {
		return 0, nil
	}

	slices.SortStableFunc(next, func(a, b model.HistoryRecord) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	if err := c.writeLocked(ctx, next); err != nil {
		return 0, err
	}
	c.records = next
	c.metrics.RecordHistoryMutation("import")
	return imported, nil
}
