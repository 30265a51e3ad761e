package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
	"github.com/frankbauer/media-rest-api/internal/services/records"
)

// startPostgres runs a throwaway database, applies migrations and returns its
// DSN. Skipped unless TEST_INTEGRATION is set.
func startPostgres(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("integration test skipped: TEST_INTEGRATION is not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("media_test"),
		tcpostgres.WithUsername("media"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container dsn: %v", err)
	}
	if err := Migrate(dsn, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// second run must be a no-op
	if err := Migrate(dsn, nil); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	return dsn
}

func openDB(t *testing.T, dsn string, cfg Config) *DB {
	t.Helper()
	cfg.DSN = dsn
	db, err := NewDB(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestIntegrationRepositories(t *testing.T) {
	dsn := startPostgres(t)
	db := openDB(t, dsn, Config{MaxConns: 4, AcquireTimeout: 2 * time.Second})
	ctx := context.Background()

	t.Run("records lifecycle", func(t *testing.T) {
		repo := NewRecordsRepo(db)
		desc := "roof sensor"

		created, err := repo.CreateRecord(ctx, records.CreateInput{Name: "A", Description: &desc, Data: json.RawMessage(`{"t": 21}`)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if !validUUID(created.ID) || created.Description == nil || *created.Description != desc {
			t.Fatalf("unexpected created record: %+v", created)
		}

		name := "B"
		updated, err := repo.UpdateRecord(ctx, created.ID, records.UpdateInput{Name: &name})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Name != "B" || updated.Description == nil || *updated.Description != desc || len(updated.Data) == 0 {
			t.Fatalf("partial update changed omitted fields: %+v", updated)
		}
		if updated.UpdatedAt.Before(created.UpdatedAt) {
			t.Fatalf("updated_at went backwards")
		}

		list, total, err := repo.ListRecords(ctx, records.ListFilter{Search: "b", Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 || len(list) != 1 || list[0].ID != created.ID {
			t.Fatalf("unexpected search result: total=%d %+v", total, list)
		}

		deleted, err := repo.DeleteRecord(ctx, created.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted.Name != "B" {
			t.Fatalf("delete must return prior state: %+v", deleted)
		}
		if _, err := repo.GetRecord(ctx, created.ID); !errors.Is(err, records.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.DeleteRecord(ctx, created.ID); !errors.Is(err, records.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("records search pages share one filter", func(t *testing.T) {
		repo := NewRecordsRepo(db)
		arrayDesc := "Sensor array on the roof"
		otherDesc := "no match here"

		inputs := []records.CreateInput{
			{Name: "Alpha sensor"},
			{Name: "beta SENSOR"},
			{Name: "gamma", Description: &arrayDesc},
			{Name: "delta", Description: &otherDesc},
		}
		ids := make([]string, 0, len(inputs))
		for _, in := range inputs {
			rec, err := repo.CreateRecord(ctx, in)
			if err != nil {
				t.Fatalf("create %s: %v", in.Name, err)
			}
			ids = append(ids, rec.ID)
		}

		// identical timestamps: only the id tie-breaker keeps pages stable
		err := db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
			_, err := conn.Exec(ctx,
				`UPDATE data_records SET created_at = '2026-01-01T00:00:00Z' WHERE id::text = ANY($1)`, ids)
			return err
		})
		if err != nil {
			t.Fatalf("align timestamps: %v", err)
		}

		seen := map[string]bool{}
		for offset := 0; offset < 3; offset++ {
			list, total, err := repo.ListRecords(ctx, records.ListFilter{Search: "sensor", Limit: 1, Offset: offset})
			if err != nil {
				t.Fatalf("list offset %d: %v", offset, err)
			}
			if total != 3 || len(list) != 1 {
				t.Fatalf("offset %d: total=%d page=%d, want 3 and 1", offset, total, len(list))
			}
			if seen[list[0].ID] {
				t.Fatalf("offset %d repeated record %s", offset, list[0].ID)
			}
			seen[list[0].ID] = true
		}
		if seen[ids[3]] {
			t.Fatalf("non-matching record was listed")
		}
		if !seen[ids[2]] {
			t.Fatalf("description-only match was not listed")
		}

		for _, id := range ids {
			if _, err := repo.DeleteRecord(ctx, id); err != nil {
				t.Fatalf("cleanup %s: %v", id, err)
			}
		}
	})

	t.Run("media rows", func(t *testing.T) {
		repo := NewMediaRepo(db)

		for _, mime := range []string{"image/png", "image/jpeg", "video/mp4"} {
			id := uuid.NewString()
			_, err := repo.CreateFile(ctx, mediasvc.File{
				ID: id, Filename: id + ".bin", OriginalName: "x.bin", MimeType: mime,
				Size: 3, Bucket: "media-files", ObjectKey: id + ".bin",
			})
			if err != nil {
				t.Fatalf("create %s: %v", mime, err)
			}
		}

		images, total, err := repo.ListFiles(ctx, mediasvc.ListFilter{MimePrefix: "image/", Limit: 1})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 2 || len(images) != 1 {
			t.Fatalf("count must ignore the page size: total=%d page=%d", total, len(images))
		}

		if err := repo.DeleteFile(ctx, images[0].ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetFile(ctx, images[0].ID); !errors.Is(err, mediasvc.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteFile(ctx, images[0].ID); !errors.Is(err, mediasvc.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestIntegrationPoolTimeout(t *testing.T) {
	dsn := startPostgres(t)
	db := openDB(t, dsn, Config{MaxConns: 1, AcquireTimeout: 100 * time.Millisecond})

	err := db.WithConn(context.Background(), func(ctx context.Context, _ *pgxpool.Conn) error {
		return db.WithConn(ctx, func(context.Context, *pgxpool.Conn) error { return nil })
	})
	if !errors.Is(err, ErrPoolTimeout) {
		t.Fatalf("expected ErrPoolTimeout, got %v", err)
	}

	// the held connection is released again
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping after timeout: %v", err)
	}
}

func validUUID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}
