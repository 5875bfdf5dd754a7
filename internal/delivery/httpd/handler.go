package httpd

import (
	"time"

	"github.com/RubachokBoss/class-balancer/internal/config"
	"github.com/RubachokBoss/class-balancer/internal/service"
	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	placementService service.PlacementService
	sessionService   service.SessionService
	store            storage.SessionStore
	uploadCfg        config.UploadConfig
	startTime        time.Time
	logger           zerolog.Logger
}

func NewHandler(
	placementService service.PlacementService,
	sessionService service.SessionService,
	store storage.SessionStore,
	uploadCfg config.UploadConfig,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		placementService: placementService,
		sessionService:   sessionService,
		store:            store,
		uploadCfg:        uploadCfg,
		startTime:        time.Now(),
		logger:           logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	// Health check
	router.Get("/health", h.HealthCheck)
	router.Get("/ready", h.ReadyCheck)
	router.Get("/stats", h.GetStats)

	// Versioned API
	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/placements", func(r chi.Router) {
			r.Post("/upload", h.UploadRosters)
			r.Get("/history", h.GetHistory)
			r.Get("/{session_id}/files/{file_name}", h.DownloadArtifact)
			r.Get("/{session_id}/archive", h.DownloadArchive)
			r.Delete("/{session_id}", h.CleanupSession)
		})
	})
}
