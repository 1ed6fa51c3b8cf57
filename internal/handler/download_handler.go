package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nsu-cse/autograder-api/internal/observability"
	"github.com/nsu-cse/autograder-api/internal/service"
	"github.com/nsu-cse/autograder-api/internal/utils"
)

const (
	workbookDownloadName = "Compilation_Grades.xlsx"
	errorLogDownloadName = "Error_Log.txt"
)

// DownloadHandler serves the report artifacts. Every download
// regenerates the artifact from the latest published run, so a stale or
// cleaned-up file can never be served.
type DownloadHandler struct {
	registry *service.ResultRegistry
	logger   zerolog.Logger
}

// NewDownloadHandler constructs a download handler.
func NewDownloadHandler(registry *service.ResultRegistry, logger zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		registry: registry,
		logger:   logger.With().Str("component", "download_handler").Logger(),
	}
}

// Register wires artifact download routes.
func (h *DownloadHandler) Register(router fiber.Router) {
	router.Get("/download-excel", h.downloadWorkbook)
	router.Get("/download-error-log", h.downloadErrorLog)
}

func (h *DownloadHandler) downloadWorkbook(c *fiber.Ctx) error {
	path, err := h.registry.GenerateWorkbook()
	if err != nil {
		if errors.Is(err, service.ErrNoResults) {
			return utils.SendNotFound(c, "No results available. Please run grading first.")
		}
		h.logger.Error().Err(err).Msg("workbook download failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate Excel file")
	}

	observability.ArtifactDownloads().WithLabelValues("workbook").Inc()

	return c.Download(path, workbookDownloadName)
}

func (h *DownloadHandler) downloadErrorLog(c *fiber.Ctx) error {
	path, err := h.registry.GenerateErrorLog()
	if err != nil {
		if errors.Is(err, service.ErrNoResults) {
			return utils.SendNotFound(c, "No results available. Please run grading first.")
		}
		h.logger.Error().Err(err).Msg("error log download failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate error log")
	}

	observability.ArtifactDownloads().WithLabelValues("error_log").Inc()

	return c.Download(path, errorLogDownloadName)
}
