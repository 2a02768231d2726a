package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BaSui01/extrudeflow/internal/cache"
)

// RedisStore keeps results in two Redis hashes keyed by result id: one with
// full results and one with payload-free summaries. Retrieval deletes both
// fields in the same transaction, so a result is handed out at most once
// even across processes.
type RedisStore struct {
	conn      *cache.Manager
	results   string
	summaries string
}

// NewRedisStore creates a store whose hashes are named after prefix.
func NewRedisStore(conn *cache.Manager, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "extrudeflow"
	}
	return &RedisStore{
		conn:      conn,
		results:   prefix + ":results",
		summaries: prefix + ":summaries",
	}
}

func (s *RedisStore) Put(ctx context.Context, id string, r Result) error {
	full, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	summary, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.conn.HashSet(ctx, id, map[string][]byte{
		s.results:   full,
		s.summaries: summary,
	})
}

func (s *RedisStore) Take(ctx context.Context, id string) (Result, error) {
	data, err := s.conn.HashTake(ctx, s.results, id, s.summaries)
	if errors.Is(err, cache.ErrMiss) {
		return Result{}, ErrResultNotFound
	}
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("unmarshal result %s: %w", id, err)
	}
	return r, nil
}

func (s *RedisStore) Summaries(ctx context.Context) (map[string]Summary, error) {
	all, err := s.conn.HashAll(ctx, s.summaries)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(all))
	for id, raw := range all {
		var sum Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, fmt.Errorf("unmarshal summary %s: %w", id, err)
		}
		out[id] = sum
	}
	return out, nil
}
