package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
)

const mediaColumns = `id::text, filename, original_name, mime_type, size, bucket, object_key, created_at, updated_at`

type MediaRepo struct {
	db *DB
}

func NewMediaRepo(db *DB) *MediaRepo {
	return &MediaRepo{db: db}
}

func (r *MediaRepo) CreateFile(ctx context.Context, file mediasvc.File) (mediasvc.File, error) {
	var record mediasvc.File
	err := r.db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		row := conn.QueryRow(ctx, `
INSERT INTO media_files (id, filename, original_name, mime_type, size, bucket, object_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+mediaColumns,
			file.ID, file.Filename, file.OriginalName, file.MimeType, file.Size, file.Bucket, file.ObjectKey,
		)
		return scanMediaFile(row, &record)
	})
	if err != nil {
		return mediasvc.File{}, fmt.Errorf("insert media file: %w", err)
	}
	return record, nil
}

func (r *MediaRepo) GetFile(ctx context.Context, id string) (mediasvc.File, error) {
	var record mediasvc.File
	err := r.db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE id = $1`, id)
		return scanMediaFile(row, &record)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mediasvc.File{}, mediasvc.ErrNotFound
		}
		return mediasvc.File{}, fmt.Errorf("get media file: %w", err)
	}
	return record, nil
}

// ListFiles runs the page and count queries concurrently over the same
// predicate.
func (r *MediaRepo) ListFiles(ctx context.Context, filter mediasvc.ListFilter) ([]mediasvc.File, int, error) {
	where := mediaListWhere(filter.MimePrefix)

	var (
		files []mediasvc.File
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithConn(gctx, func(ctx context.Context, conn *pgxpool.Conn) error {
			rows, err := conn.Query(ctx,
				`SELECT `+mediaColumns+` FROM media_files`+where.sql+
					listOrder+where.page(),
				where.pageArgs(filter.Limit, filter.Offset)...,
			)
			if err != nil {
				return fmt.Errorf("list media files: %w", err)
			}
			defer rows.Close()

			files = make([]mediasvc.File, 0, filter.Limit)
			for rows.Next() {
				var record mediasvc.File
				if err := scanMediaFile(rows, &record); err != nil {
					return fmt.Errorf("scan media file: %w", err)
				}
				files = append(files, record)
			}
			if rows.Err() != nil {
				return fmt.Errorf("iterate media files: %w", rows.Err())
			}
			return nil
		})
	})
	g.Go(func() error {
		return r.db.WithConn(gctx, func(ctx context.Context, conn *pgxpool.Conn) error {
			if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM media_files`+where.sql, where.args...).Scan(&total); err != nil {
				return fmt.Errorf("count media files: %w", err)
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

func (r *MediaRepo) DeleteFile(ctx context.Context, id string) error {
	return r.db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM media_files WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete media file: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return mediasvc.ErrNotFound
		}
		return nil
	})
}

func scanMediaFile(row pgx.Row, record *mediasvc.File) error {
	return row.Scan(
		&record.ID,
		&record.Filename,
		&record.OriginalName,
		&record.MimeType,
		&record.Size,
		&record.Bucket,
		&record.ObjectKey,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
}

func mediaListWhere(mimePrefix string) whereClause {
	var w whereClause
	if mimePrefix != "" {
		w.add("mime_type LIKE $?", mimePrefix+"%")
	}
	return w
}
