package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/infra/metrics"
	"github.com/frankbauer/media-rest-api/internal/pkg/pagination"
)

const defaultContentType = "application/octet-stream"

// Column widths of media_files.original_name and media_files.mime_type.
const (
	maxOriginalNameLen = 255
	maxMimeTypeLen     = 100
)

const (
	TypeImage = "image"
	TypeVideo = "video"
)

type Store interface {
	CreateFile(ctx context.Context, file File) (File, error)
	GetFile(ctx context.Context, id string) (File, error)
	ListFiles(ctx context.Context, filter ListFilter) ([]File, int, error)
	DeleteFile(ctx context.Context, id string) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, meta ObjectMeta) error
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
}

// OrphanRecorder persists detected inconsistencies for later reconciliation.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, orphan Orphan) error
}

type File struct {
	ID           string
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	Bucket       string
	ObjectKey    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ObjectMeta struct {
	ContentType  string
	OriginalName string
}

type ListFilter struct {
	MimePrefix string
	Limit      int
	Offset     int
}

type ListQuery struct {
	Page pagination.Params
	Type string
}

type ListResult struct {
	Files      []File
	Pagination pagination.Summary
}

type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
}

type Config struct {
	Bucket  string
	MaxSize int64
	// CompensateOrphans deletes the freshly written object when the metadata
	// insert fails. Off: the object is left in place and only flagged.
	CompensateOrphans bool
}

type Service struct {
	store     Store
	storage   ObjectStorage
	validator ContentValidator
	orphans   OrphanRecorder
	cfg       Config
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

func NewService(store Store, storage ObjectStorage, validator ContentValidator, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)

	return &Service{
		store:     store,
		storage:   storage,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

func (s *Service) AttachOrphanRecorder(recorder OrphanRecorder) {
	s.orphans = recorder
}

func (s *Service) Upload(ctx context.Context, in UploadInput) (File, error) {
	if in.Body == nil || in.Size <= 0 || strings.TrimSpace(in.OriginalName) == "" {
		return File{}, ErrNoFile
	}
	if s.store == nil || s.storage == nil || s.validator == nil {
		return File{}, fmt.Errorf("media dependencies are not configured")
	}
	if s.cfg.MaxSize > 0 && in.Size > s.cfg.MaxSize {
		return File{}, ErrPayloadTooLarge
	}
	if utf8.RuneCountInString(in.OriginalName) > maxOriginalNameLen {
		return File{}, ErrNameTooLong
	}

	body, contentType, err := s.validator.Validate(in.OriginalName, in.ContentType, in.Body)
	if err != nil {
		s.logger.Info("media upload rejected",
			zap.String("original_name", in.OriginalName),
			zap.String("extension", path.Ext(in.OriginalName)),
			zap.Error(err),
		)
		return File{}, err
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	if utf8.RuneCountInString(contentType) > maxMimeTypeLen {
		return File{}, ErrMimeTypeTooLong
	}

	id := s.newID()
	objectKey := buildObjectKey(id, in.OriginalName)

	if err := s.storage.EnsureBucket(ctx, s.cfg.Bucket); err != nil {
		s.logger.Error("ensure media bucket failed", zap.String("bucket", s.cfg.Bucket), zap.Error(err))
		return File{}, fmt.Errorf("%w: ensure bucket: %w", ErrUploadFailed, err)
	}

	if err := s.storage.Put(ctx, s.cfg.Bucket, objectKey, body, in.Size, ObjectMeta{
		ContentType:  contentType,
		OriginalName: in.OriginalName,
	}); err != nil {
		s.logger.Error("media object write failed",
			zap.String("media_id", id),
			zap.String("bucket", s.cfg.Bucket),
			zap.String("object_key", objectKey),
			zap.Error(err),
		)
		return File{}, fmt.Errorf("%w: put object: %w", ErrUploadFailed, err)
	}

	candidate := File{
		ID:           id,
		Filename:     objectKey,
		OriginalName: in.OriginalName,
		MimeType:     contentType,
		Size:         in.Size,
		Bucket:       s.cfg.Bucket,
		ObjectKey:    objectKey,
	}

	record, err := s.store.CreateFile(ctx, candidate)
	if err != nil {
		s.handleOrphanedObject(ctx, candidate, err)
		return File{}, fmt.Errorf("%w: insert media row: %w", ErrRecordWrite, err)
	}

	return record, nil
}

// Open returns the stored record together with a stream over its object. The
// caller must close the stream.
func (s *Service) Open(ctx context.Context, id string) (File, io.ReadCloser, error) {
	if s.store == nil || s.storage == nil {
		return File{}, nil, fmt.Errorf("media dependencies are not configured")
	}

	file, err := s.lookup(ctx, id)
	if err != nil {
		return File{}, nil, err
	}

	rc, err := s.storage.Open(ctx, file.Bucket, file.ObjectKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.flagInconsistency(ctx, Orphan{
				Kind:      OrphanRowWithoutObject,
				MediaID:   file.ID,
				Bucket:    file.Bucket,
				ObjectKey: file.ObjectKey,
				Reason:    "object missing on read",
			}, err)
			return File{}, nil, ErrBlobMissing
		}
		s.logger.Error("media object read failed",
			zap.String("media_id", file.ID),
			zap.String("bucket", file.Bucket),
			zap.String("object_key", file.ObjectKey),
			zap.Error(err),
		)
		return File{}, nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	return file, rc, nil
}

// Delete removes the object first and the row second. A failed object delete
// keeps the row; a failed row delete leaves a row without object, which is
// flagged.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.store == nil || s.storage == nil {
		return fmt.Errorf("media dependencies are not configured")
	}

	file, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, file.Bucket, file.ObjectKey); err != nil {
		s.logger.Error("media object delete failed",
			zap.String("media_id", file.ID),
			zap.String("bucket", file.Bucket),
			zap.String("object_key", file.ObjectKey),
			zap.Error(err),
		)
		return fmt.Errorf("%w: remove object: %w", ErrDeleteFailed, err)
	}

	if err := s.store.DeleteFile(ctx, file.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		s.flagInconsistency(ctx, Orphan{
			Kind:      OrphanRowWithoutObject,
			MediaID:   file.ID,
			Bucket:    file.Bucket,
			ObjectKey: file.ObjectKey,
			Reason:    "row delete failed after object removal",
		}, err)
		return fmt.Errorf("%w: delete media row: %w", ErrDeleteFailed, err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if s.store == nil {
		return ListResult{}, fmt.Errorf("media dependencies are not configured")
	}
	if q.Page.Page < 1 || q.Page.Limit < 1 {
		return ListResult{}, ErrValidation
	}

	prefix, err := mimePrefixFor(q.Type)
	if err != nil {
		return ListResult{}, err
	}

	files, total, err := s.store.ListFiles(ctx, ListFilter{
		MimePrefix: prefix,
		Limit:      q.Page.Limit,
		Offset:     q.Page.Offset(),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("%w: list media rows: %w", ErrRecordRead, err)
	}

	return ListResult{
		Files:      files,
		Pagination: pagination.Summarize(q.Page, total),
	}, nil
}

func (s *Service) lookup(ctx context.Context, id string) (File, error) {
	file, err := s.store.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("%w: %w", ErrRecordRead, err)
	}
	return file, nil
}

func (s *Service) handleOrphanedObject(ctx context.Context, file File, cause error) {
	if s.cfg.CompensateOrphans {
		detached := context.WithoutCancel(ctx)
		err := s.storage.Delete(detached, file.Bucket, file.ObjectKey)
		if err == nil {
			metrics.MediaCompensations.WithLabelValues("ok").Inc()
			s.logger.Warn("media row insert failed, object removed",
				zap.String("media_id", file.ID),
				zap.String("bucket", file.Bucket),
				zap.String("object_key", file.ObjectKey),
				zap.NamedError("cause", cause),
			)
			return
		}
		metrics.MediaCompensations.WithLabelValues("failed").Inc()
		cause = errors.Join(cause, fmt.Errorf("compensating delete: %w", err))
	}

	s.flagInconsistency(ctx, Orphan{
		Kind:      OrphanObjectWithoutRow,
		MediaID:   file.ID,
		Bucket:    file.Bucket,
		ObjectKey: file.ObjectKey,
		Reason:    "row insert failed after object write",
	}, cause)
}

func (s *Service) flagInconsistency(ctx context.Context, orphan Orphan, cause error) {
	if orphan.DetectedAt.IsZero() {
		orphan.DetectedAt = s.now().UTC()
	}
	if cause != nil && orphan.Cause == "" {
		orphan.Cause = cause.Error()
	}

	metrics.MediaInconsistencies.WithLabelValues(string(orphan.Kind)).Inc()
	s.logger.Error("media inconsistency detected",
		zap.String("event", "media_inconsistency"),
		zap.String("kind", string(orphan.Kind)),
		zap.String("media_id", orphan.MediaID),
		zap.String("bucket", orphan.Bucket),
		zap.String("object_key", orphan.ObjectKey),
		zap.String("reason", orphan.Reason),
		zap.NamedError("cause", cause),
	)

	if s.orphans == nil {
		return
	}
	if err := s.orphans.RecordOrphan(context.WithoutCancel(ctx), orphan); err != nil {
		s.logger.Error("record media inconsistency failed",
			zap.String("media_id", orphan.MediaID),
			zap.String("kind", string(orphan.Kind)),
			zap.Error(err),
		)
	}
}

func buildObjectKey(id, originalName string) string {
	return id + strings.ToLower(path.Ext(strings.TrimSpace(originalName)))
}

func mimePrefixFor(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
		return "", nil
	case TypeImage:
		return "image/", nil
	case TypeVideo:
		return "video/", nil
	default:
		return "", ErrInvalidTypeQuery
	}
}
