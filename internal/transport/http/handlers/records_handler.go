package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/services/records"
	"github.com/frankbauer/media-rest-api/internal/transport/http/dto"
	httperrors "github.com/frankbauer/media-rest-api/internal/transport/http/errors"
)

type RecordsHandler struct {
	service *records.Service
	limits  PageLimits
	logger  *zap.Logger
}

func NewRecordsHandler(service *records.Service, limits PageLimits, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{service: service, limits: limits, logger: logger}
}

func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECORDS_SERVICE_UNAVAILABLE", "records service is unavailable")
		return
	}

	page, err := parsePage(r, h.limits)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "page and limit must be positive integers")
		return
	}

	result, err := h.service.List(r.Context(), records.ListQuery{Page: page, Search: r.URL.Query().Get("search")})
	if err != nil {
		h.handleError(w, r, err, "Failed to fetch data records")
		return
	}

	items := make([]dto.RecordResponse, 0, len(result.Records))
	for _, rec := range result.Records {
		items = append(items, dto.NewRecordResponse(rec))
	}

	httperrors.Write(w, http.StatusOK, dto.RecordListResponse{
		Data:       items,
		Pagination: dto.NewPaginationResponse(result.Pagination),
	})
}

func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECORDS_SERVICE_UNAVAILABLE", "records service is unavailable")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "INVALID_ID", "id must be a valid UUID")
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to fetch data record")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewRecordResponse(rec))
}

func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECORDS_SERVICE_UNAVAILABLE", "records service is unavailable")
		return
	}

	var req dto.CreateRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	rec, err := h.service.Create(r.Context(), req.Input())
	if err != nil {
		h.handleError(w, r, err, "Failed to create data record")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.NewRecordResponse(rec))
}

func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECORDS_SERVICE_UNAVAILABLE", "records service is unavailable")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "INVALID_ID", "id must be a valid UUID")
		return
	}

	var req dto.UpdateRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	rec, err := h.service.Update(r.Context(), id, req.Input())
	if err != nil {
		h.handleError(w, r, err, "Failed to update data record")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewRecordResponse(rec))
}

func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECORDS_SERVICE_UNAVAILABLE", "records service is unavailable")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "INVALID_ID", "id must be a valid UUID")
		return
	}

	rec, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "Failed to delete data record")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RecordDeleteResponse{
		Message: "Data record deleted successfully",
		Data:    dto.NewRecordResponse(rec),
	})
}

func (h *RecordsHandler) handleError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	switch {
	case errors.Is(err, records.ErrNameRequired):
		writeBadRequest(w, "VALIDATION_ERROR", "Name is required")
	case errors.Is(err, records.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", validationMessage(err))
	case errors.Is(err, records.ErrNotFound):
		writeNotFound(w, "Data record not found")
	default:
		h.logger.Error("data record request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", internalMessage)
	}
}

// validationMessage strips the sentinel prefix from a wrapped validation
// error.
func validationMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), "validation error: "); ok && msg != "" {
		return msg
	}
	return "invalid request"
}
