package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Stats summarizes the store's contents.
type Stats struct {
	TotalRecords  int            `json:"total_records"`
	SizeBytes     int64          `json:"size_bytes"`
	Recent24h     int            `json:"recent_records_24h"`
	PopularTop    []PopularQuery `json:"popular_queries"`
	TTLHours      float64        `json:"cache_ttl_hours"`
}

// PopularQuery is one of the most-accessed cached queries.
type PopularQuery struct {
	Query       string    `json:"query"`
	AccessCount int       `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats reports entry counts, on-disk size, recent activity, and the top
// five queries by access count.
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries()
	if err != nil {
		return nil, err
	}

	lsm, vlog := s.db.Size()

	stats := &Stats{
		TotalRecords: len(entries),
		SizeBytes:    lsm + vlog,
		TTLHours:     s.ttl.Hours(),
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	for _, e := range entries {
		if e.CreatedAt.After(cutoff) {
			stats.Recent24h++
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessCount > entries[j].AccessCount
	})
	for i, e := range entries {
		if i >= 5 {
			break
		}
		query := e.Query
		if runes := []rune(query); len(runes) > 100 {
			query = string(runes[:100]) + "..."
		}
		stats.PopularTop = append(stats.PopularTop, PopularQuery{
			Query:       query,
			AccessCount: e.AccessCount,
			CreatedAt:   e.CreatedAt,
		})
	}

	return stats, nil
}

// Export writes every entry, newest first, to a JSON document at path and
// reports the number of entries written.
func (s *Store) Export(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries()
	if err != nil {
		return 0, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal cache export: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write cache export: %w", err)
	}

	return len(entries), nil
}
