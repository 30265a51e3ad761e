package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frankbauer/media-rest-api/internal/pkg/pagination"
	"github.com/frankbauer/media-rest-api/internal/pkg/validate"
	httperrors "github.com/frankbauer/media-rest-api/internal/transport/http/errors"
)

const maxJSONBodySize = 1 << 20 // 1 MiB

// PageLimits bounds the page size accepted by list endpoints.
type PageLimits struct {
	Default int
	Max     int
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	return json.NewDecoder(r.Body).Decode(target)
}

func parsePage(r *http.Request, limits PageLimits) (pagination.Params, error) {
	q := r.URL.Query()
	return pagination.Parse(q.Get("page"), q.Get("limit"), limits.Default, limits.Max)
}

func pathID(r *http.Request) (string, bool) {
	return validate.CanonicalUUID(chi.URLParam(r, "id"))
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	httperrors.WriteError(w, http.StatusNotFound, "NOT_FOUND", message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}
