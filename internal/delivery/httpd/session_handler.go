package httpd

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileName := chi.URLParam(r, "file_name")
	if sessionID == "" || fileName == "" {
		writeError(w, http.StatusBadRequest, "Session ID and file name are required")
		return
	}

	ctx := r.Context()
	artifact, err := h.sessionService.GetArtifact(ctx, sessionID, fileName)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	h.sendArtifact(w, artifact)
}

func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	ctx := r.Context()
	artifact, err := h.sessionService.Archive(ctx, sessionID)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	h.sendArtifact(w, artifact)
}

// CleanupSession идемпотентен: повторное удаление тоже отвечает 200.
func (h *Handler) CleanupSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	ctx := r.Context()
	if err := h.sessionService.Cleanup(ctx, sessionID); err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Cleanup error")
		writeError(w, http.StatusInternalServerError, "Failed to cleanup session")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"session_id": sessionID,
		"message":    "Cleanup completed",
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 20)

	ctx := r.Context()
	entries, err := h.placementService.History(ctx, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load placement history")
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handler) sendArtifact(w http.ResponseWriter, artifact *storage.Artifact) {
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+artifact.Name+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))

	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

func (h *Handler) handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found or expired, please re-upload")
	case errors.Is(err, storage.ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, "File not found in session")
	default:
		h.logger.Error().Err(err).Msg("Session storage error")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve session data")
	}
}
