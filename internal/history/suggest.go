package history

import "strings"

// DefaultSuggestLimit caps Suggest when limit <= 0.
const DefaultSuggestLimit = 10

// Suggest returns distinct dish names from the active namespace, most recent first,
// whose name contains query (case-insensitive). An empty query matches everything.
func (c *Cache) Suggest(query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, r := range c.records {
		name := r.DishName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if q != "" && !strings.Contains(strings.ToLower(name), q) {
			continue
		}
		out = append(out, name)
		if len(out) == limit {
			break
		}
	}
	return out
}
