package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/infra/metrics"
	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
)

const defaultBatchSize = 100

type Ledger interface {
	ListOrphans(ctx context.Context, limit int) ([]mediasvc.Orphan, error)
	ResolveOrphan(ctx context.Context, orphan mediasvc.Orphan) error
}

type Rows interface {
	GetFile(ctx context.Context, id string) (mediasvc.File, error)
	DeleteFile(ctx context.Context, id string) error
}

type Objects interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
}

type Report struct {
	Scanned  int
	Resolved int
	Failed   int
}

// Job repairs the inconsistencies recorded in the ledger. An entry stays in
// the ledger until it has been repaired or found consistent.
type Job struct {
	ledger    Ledger
	rows      Rows
	objects   Objects
	batchSize int
	logger    *zap.Logger
}

func New(ledger Ledger, rows Rows, objects Objects, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		ledger:    ledger,
		rows:      rows,
		objects:   objects,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) (Report, error) {
	var report Report
	if j.ledger == nil || j.rows == nil || j.objects == nil {
		return report, fmt.Errorf("reconcile dependencies are not configured")
	}

	orphans, err := j.ledger.ListOrphans(ctx, j.batchSize)
	if err != nil {
		return report, fmt.Errorf("list orphans: %w", err)
	}

	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		outcome, err := j.reconcile(ctx, orphan)
		if err == nil {
			err = j.ledger.ResolveOrphan(ctx, orphan)
		}
		if err != nil {
			report.Failed++
			metrics.ReconciledOrphans.WithLabelValues(string(orphan.Kind), "failed").Inc()
			j.logger.Warn("reconcile orphan failed",
				zap.String("kind", string(orphan.Kind)),
				zap.String("media_id", orphan.MediaID),
				zap.String("bucket", orphan.Bucket),
				zap.String("object_key", orphan.ObjectKey),
				zap.Error(err),
			)
			continue
		}

		report.Resolved++
		metrics.ReconciledOrphans.WithLabelValues(string(orphan.Kind), outcome).Inc()
		j.logger.Info("reconcile orphan resolved",
			zap.String("kind", string(orphan.Kind)),
			zap.String("media_id", orphan.MediaID),
			zap.String("outcome", outcome),
		)
	}

	if report.Scanned > 0 {
		j.logger.Info("reconcile run completed",
			zap.Int("scanned", report.Scanned),
			zap.Int("resolved", report.Resolved),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

// RunEvery runs the job on a fixed interval until ctx is done.
func (j *Job) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.logger.Warn("reconcile run failed", zap.Error(err))
			}
		}
	}
}

func (j *Job) reconcile(ctx context.Context, orphan mediasvc.Orphan) (string, error) {
	switch orphan.Kind {
	case mediasvc.OrphanObjectWithoutRow:
		return j.reconcileObjectWithoutRow(ctx, orphan)
	case mediasvc.OrphanRowWithoutObject:
		return j.reconcileRowWithoutObject(ctx, orphan)
	default:
		return "", fmt.Errorf("unknown orphan kind %q", orphan.Kind)
	}
}

func (j *Job) reconcileObjectWithoutRow(ctx context.Context, orphan mediasvc.Orphan) (string, error) {
	_, err := j.rows.GetFile(ctx, orphan.MediaID)
	switch {
	case err == nil:
		return "consistent", nil
	case !errors.Is(err, mediasvc.ErrNotFound):
		return "", fmt.Errorf("lookup media row: %w", err)
	}

	exists, err := j.objects.Exists(ctx, orphan.Bucket, orphan.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("stat orphaned object: %w", err)
	}
	if !exists {
		return "already_removed", nil
	}
	if err := j.objects.Delete(ctx, orphan.Bucket, orphan.ObjectKey); err != nil {
		return "", fmt.Errorf("remove orphaned object: %w", err)
	}
	return "object_removed", nil
}

func (j *Job) reconcileRowWithoutObject(ctx context.Context, orphan mediasvc.Orphan) (string, error) {
	exists, err := j.objects.Exists(ctx, orphan.Bucket, orphan.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("stat media object: %w", err)
	}
	if exists {
		return "consistent", nil
	}

	if err := j.rows.DeleteFile(ctx, orphan.MediaID); err != nil {
		if errors.Is(err, mediasvc.ErrNotFound) {
			return "already_removed", nil
		}
		return "", fmt.Errorf("delete dangling media row: %w", err)
	}
	return "row_removed", nil
}
