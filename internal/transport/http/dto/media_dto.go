package dto

import (
	"time"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
)

type MediaFileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Bucket       string    `json:"bucket"`
	ObjectKey    string    `json:"object_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MediaUploadResponse struct {
	Message string            `json:"message"`
	File    MediaFileResponse `json:"file"`
}

type MediaListResponse struct {
	Files      []MediaFileResponse `json:"files"`
	Pagination PaginationResponse  `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewMediaFileResponse(f mediasvc.File) MediaFileResponse {
	return MediaFileResponse{
		ID:           f.ID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Bucket:       f.Bucket,
		ObjectKey:    f.ObjectKey,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
