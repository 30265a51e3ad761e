package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
	"github.com/frankbauer/media-rest-api/internal/transport/http/dto"
	httperrors "github.com/frankbauer/media-rest-api/internal/transport/http/errors"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

type MediaLimits struct {
	MaxFileSize     int64
	MultipartMemory int64
	Page            PageLimits
}

type MediaHandler struct {
	service *mediasvc.Service
	limits  MediaLimits
	logger  *zap.Logger
}

func NewMediaHandler(service *mediasvc.Service, limits MediaLimits, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MultipartMemory <= 0 {
		limits.MultipartMemory = 32 << 20
	}
	return &MediaHandler{service: service, limits: limits, logger: logger}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	if h.limits.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxFileSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(h.limits.MultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(w, "PAYLOAD_TOO_LARGE", "File too large")
			return
		}
		writeBadRequest(w, "VALIDATION_ERROR", "No file uploaded")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "No file uploaded")
		return
	}
	defer file.Close()

	created, err := h.service.Upload(r.Context(), mediasvc.UploadInput{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         file,
	})
	if err != nil {
		h.handleError(w, r, err, "Failed to upload file")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MediaUploadResponse{
		Message: "File uploaded successfully",
		File:    dto.NewMediaFileResponse(created),
	})
}

// Get streams the object back with the metadata recorded at upload. The
// stored content type is replayed as is.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "INVALID_ID", "id must be a valid UUID")
		return
	}

	file, body, err := h.service.Open(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to retrieve file")
		return
	}
	defer body.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(file.OriginalName))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("media stream interrupted",
			zap.String("media_id", file.ID),
			zap.String("bucket", file.Bucket),
			zap.String("object_key", file.ObjectKey),
			zap.Error(err),
		)
	}
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	page, err := parsePage(r, h.limits.Page)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "page and limit must be positive integers")
		return
	}

	result, err := h.service.List(r.Context(), mediasvc.ListQuery{Page: page, Type: r.URL.Query().Get("type")})
	if err != nil {
		h.handleError(w, r, err, "Failed to list media files")
		return
	}

	files := make([]dto.MediaFileResponse, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, dto.NewMediaFileResponse(f))
	}

	httperrors.Write(w, http.StatusOK, dto.MediaListResponse{
		Files:      files,
		Pagination: dto.NewPaginationResponse(result.Pagination),
	})
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "INVALID_ID", "id must be a valid UUID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err, "Failed to delete file")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MessageResponse{Message: "File deleted successfully"})
}

func (h *MediaHandler) handleError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	switch {
	case errors.Is(err, mediasvc.ErrNoFile):
		writeBadRequest(w, "VALIDATION_ERROR", "No file uploaded")
	case errors.Is(err, mediasvc.ErrPayloadTooLarge):
		writeBadRequest(w, "PAYLOAD_TOO_LARGE", "File too large")
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		writeBadRequest(w, "UNSUPPORTED_MEDIA_TYPE", "Only image and video files are allowed")
	case errors.Is(err, mediasvc.ErrNameTooLong):
		writeBadRequest(w, "VALIDATION_ERROR", "File name too long")
	case errors.Is(err, mediasvc.ErrMimeTypeTooLong):
		writeBadRequest(w, "VALIDATION_ERROR", "Content type too long")
	case errors.Is(err, mediasvc.ErrInvalidTypeQuery):
		writeBadRequest(w, "VALIDATION_ERROR", "type must be image or video")
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid media request")
	case errors.Is(err, mediasvc.ErrNotFound):
		writeNotFound(w, "File not found")
	default:
		h.logger.Error("media request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", internalMessage)
	}
}

// contentDisposition quotes plain ASCII names directly and falls back to the
// RFC 2231 form for anything else.
func contentDisposition(name string) string {
	if name == "" {
		return "inline"
	}
	if plainASCII(name) {
		return `inline; filename="` + name + `"`
	}
	if v := mime.FormatMediaType("inline", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "inline"
}

func plainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}
