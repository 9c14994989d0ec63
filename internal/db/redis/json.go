package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/drillscout/internal/db"
)

// JSONSetMulti writes documents in pipelined batches. The first failing key aborts the call;
// batches already sent stay written.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().JsonSet().Key(item.Key).Path(item.Path).Value(string(item.Data)).Build()
	}

	for i, res := range s.doBatched(ctx, cmds) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return nil
}

// JSONGetMulti fetches path from every key in pipelined batches.
// Keys that vanished between SCAN and GET yield a nil entry instead of an error.
func (s *Store) JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().JsonGet().Key(key).Path(path).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.doBatched(ctx, cmds) {
		raw, err := res.ToString()
		switch {
		case rueidis.IsRedisNil(err):
			continue
		case err != nil:
			return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		if raw != "" {
			out[i] = []byte(raw)
		}
	}
	return out, nil
}
