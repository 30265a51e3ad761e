package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/frankbauer/media-rest-api/internal/services/records"
)

const recordColumns = `id::text, name, description, data, created_at, updated_at`

type RecordsRepo struct {
	db *DB
}

func NewRecordsRepo(db *DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

func (r *RecordsRepo) ListRecords(ctx context.Context, filter records.ListFilter) ([]records.Record, int, error) {
	where := recordsListWhere(filter.Search)

	var (
		list  []records.Record
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithConn(gctx, func(ctx context.Context, conn *pgxpool.Conn) error {
			rows, err := conn.Query(ctx,
				`SELECT `+recordColumns+` FROM data_records`+where.sql+
					listOrder+where.page(),
				where.pageArgs(filter.Limit, filter.Offset)...,
			)
			if err != nil {
				return fmt.Errorf("list data records: %w", err)
			}
			defer rows.Close()

			list = make([]records.Record, 0, filter.Limit)
			for rows.Next() {
				var record records.Record
				if err := scanRecord(rows, &record); err != nil {
					return fmt.Errorf("scan data record: %w", err)
				}
				list = append(list, record)
			}
			if rows.Err() != nil {
				return fmt.Errorf("iterate data records: %w", rows.Err())
			}
			return nil
		})
	})
	g.Go(func() error {
		return r.db.WithConn(gctx, func(ctx context.Context, conn *pgxpool.Conn) error {
			if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM data_records`+where.sql, where.args...).Scan(&total); err != nil {
				return fmt.Errorf("count data records: %w", err)
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *RecordsRepo) GetRecord(ctx context.Context, id string) (records.Record, error) {
	return r.queryOne(ctx, "get data record", `SELECT `+recordColumns+` FROM data_records WHERE id = $1`, id)
}

func (r *RecordsRepo) CreateRecord(ctx context.Context, in records.CreateInput) (records.Record, error) {
	return r.queryOne(ctx, "insert data record", `
INSERT INTO data_records (name, description, data)
VALUES ($1, $2, $3)
RETURNING `+recordColumns,
		in.Name, in.Description, jsonArg(in.Data),
	)
}

// UpdateRecord leaves NULL arguments untouched through COALESCE, so an
// omitted field can never be cleared.
func (r *RecordsRepo) UpdateRecord(ctx context.Context, id string, in records.UpdateInput) (records.Record, error) {
	return r.queryOne(ctx, "update data record", `
UPDATE data_records
SET name = COALESCE($1, name),
    description = COALESCE($2, description),
    data = COALESCE($3, data),
    updated_at = CURRENT_TIMESTAMP
WHERE id = $4
RETURNING `+recordColumns,
		in.Name, in.Description, jsonArg(in.Data), id,
	)
}

func (r *RecordsRepo) DeleteRecord(ctx context.Context, id string) (records.Record, error) {
	return r.queryOne(ctx, "delete data record", `DELETE FROM data_records WHERE id = $1 RETURNING `+recordColumns, id)
}

func (r *RecordsRepo) queryOne(ctx context.Context, op, sql string, args ...any) (records.Record, error) {
	var record records.Record
	err := r.db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return scanRecord(conn.QueryRow(ctx, sql, args...), &record)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return records.Record{}, records.ErrNotFound
		}
		return records.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	return record, nil
}

func scanRecord(row pgx.Row, record *records.Record) error {
	var data []byte
	if err := row.Scan(
		&record.ID,
		&record.Name,
		&record.Description,
		&data,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return err
	}
	if data != nil {
		record.Data = json.RawMessage(data)
	}
	return nil
}

// jsonArg maps an absent document to SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func recordsListWhere(search string) whereClause {
	var w whereClause
	if search != "" {
		w.add("name ILIKE $? OR description ILIKE $?", "%"+search+"%")
	}
	return w
}
