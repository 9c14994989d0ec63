package redis

import (
	"context"

	"github.com/kailas-cloud/drillscout/internal/db"
)

// Scan walks the keyspace for pattern until the cursor wraps.
// Keys may repeat across pages under concurrent rehashing; duplicates are dropped.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
		seen   = make(map[string]struct{})
	)
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(s.scanCount).Build()
		entry, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		for _, k := range entry.Elements {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if cursor = entry.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}
