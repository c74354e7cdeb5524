package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string        `json:"db_path"`
	DBSizeBytes int64         `json:"db_size_bytes"`
	TotalKeys   int           `json:"total_keys"`
	Regions     []RegionStats `json:"regions"`
}

// RegionStats holds per-region counts.
type RegionStats struct {
	NS    string `json:"ns"`
	Keys  int    `json:"keys"`
	Bytes int64  `json:"bytes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&st.TotalKeys)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ns, COUNT(*) AS keys, COALESCE(SUM(LENGTH(value)), 0) AS bytes
		FROM kv GROUP BY ns ORDER BY ns`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r RegionStats
		if err := rows.Scan(&r.NS, &r.Keys, &r.Bytes); err != nil {
			return st, err
		}
		st.Regions = append(st.Regions, r)
	}

	return st, rows.Err()
}
