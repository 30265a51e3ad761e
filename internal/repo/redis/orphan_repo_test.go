package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestOrphanRepoRecordListResolve(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	repo := NewOrphanRepo(client, "")
	ctx := context.Background()
	base := time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)

	newer := mediasvc.Orphan{Kind: mediasvc.OrphanRowWithoutObject, MediaID: "b", Bucket: "media-files", ObjectKey: "b.png", DetectedAt: base.Add(time.Minute)}
	older := mediasvc.Orphan{Kind: mediasvc.OrphanObjectWithoutRow, MediaID: "a", Bucket: "media-files", ObjectKey: "a.png", Cause: "insert failed", DetectedAt: base}

	for _, o := range []mediasvc.Orphan{newer, older} {
		if err := repo.RecordOrphan(ctx, o); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if !mr.Exists("media:orphans") {
		t.Fatalf("expected ledger hash under the default key")
	}

	list, err := repo.ListOrphans(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].MediaID != "a" || list[1].MediaID != "b" {
		t.Fatalf("expected oldest first, got %+v", list)
	}
	if list[0].Cause != "insert failed" || list[0].ObjectKey != "a.png" || !list[0].DetectedAt.Equal(base) {
		t.Fatalf("entry did not round trip: %+v", list[0])
	}

	limited, err := repo.ListOrphans(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %v %+v", err, limited)
	}

	if err := repo.ResolveOrphan(ctx, older); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	n, err := repo.CountOrphans(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one remaining entry, got %d", n)
	}
}

func TestOrphanRepoCollapsesRepeatedDetections(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewOrphanRepo(client, "test:orphans")
	ctx := context.Background()

	o := mediasvc.Orphan{Kind: mediasvc.OrphanRowWithoutObject, MediaID: "x", Reason: "first"}
	if err := repo.RecordOrphan(ctx, o); err != nil {
		t.Fatalf("record: %v", err)
	}
	o.Reason = "second"
	if err := repo.RecordOrphan(ctx, o); err != nil {
		t.Fatalf("record again: %v", err)
	}

	list, err := repo.ListOrphans(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Reason != "second" {
		t.Fatalf("expected a single refreshed entry, got %+v", list)
	}
}

func TestOrphanRepoResolveKeepsNewerDetection(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewOrphanRepo(client, "")
	ctx := context.Background()
	first := time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)

	o := mediasvc.Orphan{Kind: mediasvc.OrphanObjectWithoutRow, MediaID: "x", ObjectKey: "x.png", DetectedAt: first}
	if err := repo.RecordOrphan(ctx, o); err != nil {
		t.Fatalf("record: %v", err)
	}
	listed, err := repo.ListOrphans(ctx, 1)
	if err != nil || len(listed) != 1 {
		t.Fatalf("list: %v %+v", err, listed)
	}

	again := o
	again.DetectedAt = first.Add(time.Minute)
	if err := repo.RecordOrphan(ctx, again); err != nil {
		t.Fatalf("record again: %v", err)
	}

	if err := repo.ResolveOrphan(ctx, listed[0]); err != nil {
		t.Fatalf("resolve stale entry: %v", err)
	}
	remaining, err := repo.ListOrphans(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || !remaining[0].DetectedAt.Equal(again.DetectedAt) {
		t.Fatalf("newer detection must survive, got %+v", remaining)
	}

	if err := repo.ResolveOrphan(ctx, remaining[0]); err != nil {
		t.Fatalf("resolve current entry: %v", err)
	}
	if n, _ := repo.CountOrphans(ctx); n != 0 {
		t.Fatalf("expected empty ledger, got %d", n)
	}
	if err := repo.ResolveOrphan(ctx, remaining[0]); err != nil {
		t.Fatalf("resolving a missing entry must be a no-op: %v", err)
	}
}

func TestOrphanRepoSkipsUndecodableEntries(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	repo := NewOrphanRepo(client, "")

	mr.HSet("media:orphans", "junk", "{not json")

	list, err := repo.ListOrphans(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("junk entry should be skipped, got %+v", list)
	}
}

func TestOrphanRepoRejectsIncompleteEntries(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewOrphanRepo(client, "")

	if err := repo.RecordOrphan(context.Background(), mediasvc.Orphan{Kind: mediasvc.OrphanObjectWithoutRow}); err == nil {
		t.Fatalf("expected error for missing media id")
	}
}

func TestOrphanRepoRequiresClient(t *testing.T) {
	repo := NewOrphanRepo(nil, "")

	if err := repo.RecordOrphan(context.Background(), mediasvc.Orphan{Kind: mediasvc.OrphanObjectWithoutRow, MediaID: "a"}); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := repo.ListOrphans(context.Background(), 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestNewClientWithoutAddr(t *testing.T) {
	if NewClient("", "", 0) != nil {
		t.Fatalf("expected nil client for empty addr")
	}
}
