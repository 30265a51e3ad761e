package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/frankbauer/media-rest-api/internal/services/records"
)

type CreateRecordRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Data        json.RawMessage `json:"data"`
}

// UpdateRecordRequest fields are optional. JSON null is treated as absent.
type UpdateRecordRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Data        json.RawMessage `json:"data"`
}

type RecordResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type RecordListResponse struct {
	Data       []RecordResponse   `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

type RecordDeleteResponse struct {
	Message string         `json:"message"`
	Data    RecordResponse `json:"data"`
}

func (r CreateRecordRequest) Input() records.CreateInput {
	return records.CreateInput{
		Name:        r.Name,
		Description: r.Description,
		Data:        NullableJSON(r.Data),
	}
}

func (r UpdateRecordRequest) Input() records.UpdateInput {
	return records.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		Data:        NullableJSON(r.Data),
	}
}

func NewRecordResponse(r records.Record) RecordResponse {
	return RecordResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Data:        r.Data,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NullableJSON maps an absent or literal null document to nil.
func NullableJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
