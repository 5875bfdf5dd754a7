package httpd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/RubachokBoss/class-balancer/internal/parser"
)

func (h *Handler) UploadRosters(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.uploadCfg.MaxFileSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "At least one roster file is required")
		return
	}

	files := make([]parser.UploadedFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !h.extensionAllowed(ext) {
			writeError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("file type not allowed: %s", header.Filename))
			return
		}

		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to open uploaded file")
			return
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read uploaded file")
			return
		}

		files = append(files, parser.UploadedFile{Name: header.Filename, Data: data})
	}

	classCfg := models.ClassConfig{
		BigCount:   getIntFormValue(r, "big_count", 0),
		SmallCount: getIntFormValue(r, "small_count", 0),
		SmallSize:  getIntFormValue(r, "small_size", 0),
	}
	if classCfg.BigCount < 0 || classCfg.SmallCount < 0 || classCfg.SmallSize < 0 {
		writeError(w, http.StatusBadRequest, "Class counts must not be negative")
		return
	}

	seed := getInt64FormValue(r, "seed", 0)

	ctx := r.Context()
	summary, err := h.placementService.ProcessUpload(ctx, files, classCfg, seed)
	if err != nil {
		h.handleUploadError(w, err)
		return
	}

	// Ни одна параллель не прошла из-за конфигурации классов —
	// запрос обработать невозможно.
	if len(summary.Results) == 0 && hasConfigError(summary) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"success":   false,
			"data":      summary,
			"timestamp": timestamp(),
		})
		return
	}

	writeSuccess(w, summary)
}

func (h *Handler) extensionAllowed(ext string) bool {
	for _, allowed := range h.uploadCfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func hasConfigError(summary *models.PlacementSummary) bool {
	for _, failed := range summary.Failed {
		if strings.Contains(failed.Error, "invalid class configuration") {
			return true
		}
	}
	return false
}

func (h *Handler) handleUploadError(w http.ResponseWriter, err error) {
	var configErr *balancer.ConfigError
	var dataErr *balancer.DataError

	switch {
	case errors.Is(err, parser.ErrNoRosters):
		writeError(w, http.StatusBadRequest, "No valid rosters found in uploaded files")
	case errors.As(err, &configErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &dataErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Upload error")
		writeError(w, http.StatusInternalServerError, "Failed to process upload")
	}
}
