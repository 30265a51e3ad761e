package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/config"
	"github.com/frankbauer/media-rest-api/internal/infra/metrics"
	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
	"github.com/frankbauer/media-rest-api/internal/services/records"
	httperrors "github.com/frankbauer/media-rest-api/internal/transport/http/errors"
	"github.com/frankbauer/media-rest-api/internal/transport/http/handlers"
)

type Dependencies struct {
	MediaService   *mediasvc.Service
	RecordsService *records.Service
	Readiness      []handlers.ReadinessCheck
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	pageLimits := handlers.PageLimits{
		Default: deps.Config.Records.DefaultPageLimit,
		Max:     deps.Config.Records.MaxPageLimit,
	}

	healthHandler := handlers.NewHealthHandler(deps.Readiness...)
	recordsHandler := handlers.NewRecordsHandler(deps.RecordsService, pageLimits, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService, handlers.MediaLimits{
		MaxFileSize:     deps.Config.Media.MaxSizeBytes(),
		MultipartMemory: deps.Config.Media.MultipartMemoryMB << 20,
		Page:            pageLimits,
	}, deps.Logger)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/data", func(r chi.Router) {
		r.Get("/", recordsHandler.List)
		r.Post("/", recordsHandler.Create)
		r.Get("/{id}", recordsHandler.Get)
		r.Put("/{id}", recordsHandler.Update)
		r.Delete("/{id}", recordsHandler.Delete)
	})

	r.Route("/api/media", func(r chi.Router) {
		r.Post("/upload", mediaHandler.Upload)
		r.Get("/", mediaHandler.List)
		r.Get("/{id}", mediaHandler.Get)
		r.Delete("/{id}", mediaHandler.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})
}
