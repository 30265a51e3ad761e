package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
)

const defaultOrphanKey = "media:orphans"

// OrphanRepo keeps detected media inconsistencies in a single hash, one field
// per kind and media id. Recording the same inconsistency twice overwrites the
// earlier entry.
type OrphanRepo struct {
	client *goredis.Client
	key    string
}

func NewOrphanRepo(client *goredis.Client, key string) *OrphanRepo {
	if key == "" {
		key = defaultOrphanKey
	}
	return &OrphanRepo{client: client, key: key}
}

func (r *OrphanRepo) RecordOrphan(ctx context.Context, orphan mediasvc.Orphan) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if orphan.MediaID == "" || orphan.Kind == "" {
		return fmt.Errorf("orphan kind and media id are required")
	}

	payload, err := json.Marshal(orphan)
	if err != nil {
		return fmt.Errorf("marshal orphan: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, orphan.LedgerKey(), payload).Err(); err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}
	return nil
}

// ListOrphans returns up to limit entries, oldest first. Entries that fail to
// decode are skipped.
func (r *OrphanRepo) ListOrphans(ctx context.Context, limit int) ([]mediasvc.Orphan, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}

	orphans := make([]mediasvc.Orphan, 0, len(raw))
	for _, value := range raw {
		var orphan mediasvc.Orphan
		if err := json.Unmarshal([]byte(value), &orphan); err != nil {
			continue
		}
		orphans = append(orphans, orphan)
	}

	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].DetectedAt.Equal(orphans[j].DetectedAt) {
			return orphans[i].LedgerKey() < orphans[j].LedgerKey()
		}
		return orphans[i].DetectedAt.Before(orphans[j].DetectedAt)
	})
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}

const resolveAttempts = 3

// ResolveOrphan removes the entry only if it still carries the DetectedAt of
// the given orphan. An entry re-recorded after it was listed is kept for the
// next run.
func (r *OrphanRepo) ResolveOrphan(ctx context.Context, orphan mediasvc.Orphan) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	field := orphan.LedgerKey()

	resolve := func(tx *goredis.Tx) error {
		raw, err := tx.HGet(ctx, r.key, field).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var current mediasvc.Orphan
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return nil
		}
		if !current.DetectedAt.Equal(orphan.DetectedAt) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HDel(ctx, r.key, field)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < resolveAttempts; i++ {
		err = r.client.Watch(ctx, resolve, r.key)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("resolve orphan: %w", err)
	}
	return nil
}

func (r *OrphanRepo) CountOrphans(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count orphans: %w", err)
	}
	return n, nil
}
