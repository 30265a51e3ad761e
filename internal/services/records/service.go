package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/pkg/pagination"
	"github.com/frankbauer/media-rest-api/internal/pkg/validate"
)

const maxNameLength = 255

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("data record not found")

	ErrNameRequired = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong  = fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	ErrInvalidData  = fmt.Errorf("%w: data must be valid json", ErrValidation)
)

type Store interface {
	ListRecords(ctx context.Context, filter ListFilter) ([]Record, int, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	CreateRecord(ctx context.Context, in CreateInput) (Record, error)
	UpdateRecord(ctx context.Context, id string, in UpdateInput) (Record, error)
	DeleteRecord(ctx context.Context, id string) (Record, error)
}

type Record struct {
	ID          string
	Name        string
	Description *string
	Data        json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateInput struct {
	Name        string
	Description *string
	Data        json.RawMessage
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Data        json.RawMessage
}

type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

type ListQuery struct {
	Page   pagination.Params
	Search string
}

type ListResult struct {
	Records    []Record
	Pagination pagination.Summary
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if s.store == nil {
		return ListResult{}, fmt.Errorf("records store is not configured")
	}
	if q.Page.Page < 1 || q.Page.Limit < 1 {
		return ListResult{}, ErrValidation
	}

	rows, total, err := s.store.ListRecords(ctx, ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Page.Limit,
		Offset: q.Page.Offset(),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list data records: %w", err)
	}

	return ListResult{
		Records:    rows,
		Pagination: pagination.Summarize(q.Page, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("records store is not configured")
	}

	record, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return Record{}, mapStoreError("get data record", err)
	}
	return record, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("records store is not configured")
	}

	name, err := normalizeName(in.Name)
	if err != nil {
		return Record{}, err
	}
	if err := checkData(in.Data); err != nil {
		return Record{}, err
	}
	in.Name = name

	record, err := s.store.CreateRecord(ctx, in)
	if err != nil {
		return Record{}, fmt.Errorf("create data record: %w", err)
	}

	s.logger.Debug("data record created", zap.String("record_id", record.ID))
	return record, nil
}

// Update applies a partial update. updated_at always advances, even when no
// field was supplied.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("records store is not configured")
	}

	if in.Name != nil {
		name, err := normalizeName(*in.Name)
		if err != nil {
			return Record{}, err
		}
		in.Name = &name
	}
	if err := checkData(in.Data); err != nil {
		return Record{}, err
	}

	record, err := s.store.UpdateRecord(ctx, id, in)
	if err != nil {
		return Record{}, mapStoreError("update data record", err)
	}
	return record, nil
}

// Delete removes the record and returns its last state.
func (s *Service) Delete(ctx context.Context, id string) (Record, error) {
	if s.store == nil {
		return Record{}, fmt.Errorf("records store is not configured")
	}

	record, err := s.store.DeleteRecord(ctx, id)
	if err != nil {
		return Record{}, mapStoreError("delete data record", err)
	}

	s.logger.Debug("data record deleted", zap.String("record_id", record.ID))
	return record, nil
}

func normalizeName(raw string) (string, error) {
	if !validate.Required(raw) {
		return "", ErrNameRequired
	}
	name := strings.TrimSpace(raw)
	if !validate.MaxLen(name, maxNameLength) {
		return "", ErrNameTooLong
	}
	return name, nil
}

func checkData(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return ErrInvalidData
	}
	return nil
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
