package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/store"
)

const (
	// DefaultRunTTL is how long a run record is kept (7 days)
	DefaultRunTTL = 7 * 24 * time.Hour
	// DefaultIndexLimit caps each run index
	DefaultIndexLimit = 200
)

// Store keeps run history in Redis. Each run is a JSON string with a TTL;
// sorted sets scored by submission time index runs globally and per target.
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	indexLimit int64
}

var _ store.History = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client, ttl time.Duration, indexLimit int) *Store {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	if indexLimit <= 0 {
		indexLimit = DefaultIndexLimit
	}
	return &Store{
		client:     client,
		ttl:        ttl,
		indexLimit: int64(indexLimit),
	}
}

// Save stores a run and refreshes its index entries
func (s *Store) Save(ctx context.Context, rec domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// Millisecond scores stay exact in a float64; equal scores order by member.
	member := redis.Z{Score: float64(rec.SubmittedAt.UnixMilli()), Member: rec.ID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, RunKey(rec.ID), data, s.ttl)
	for _, key := range []string{TargetRunsKey(""), TargetRunsKey(rec.Target)} {
		pipe.ZAdd(ctx, key, member)
		// Keep only the newest indexLimit members
		pipe.ZRemRangeByRank(ctx, key, 0, -s.indexLimit-1)
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run from Redis by ID
func (s *Store) Get(ctx context.Context, id string) (domain.RunRecord, error) {
	data, err := s.client.Get(ctx, RunKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunRecord{}, domain.ErrRunNotFound
		}
		return domain.RunRecord{}, fmt.Errorf("failed to get run: %w", err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return rec, nil
}

// Recent lists runs newest first. Index entries whose record expired are
// skipped.
func (s *Store) Recent(ctx context.Context, target string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}

	ids, err := s.client.ZRevRange(ctx, TargetRunsKey(target), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list run IDs: %w", err)
	}
	if len(ids) == 0 {
		return []domain.RunRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = RunKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}

	runs := make([]domain.RunRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Expired
			continue
		}
		var rec domain.RunRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		runs = append(runs, rec)
	}
	return runs, nil
}
