package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nsu-cse/autograder-api/internal/dto"
	"github.com/nsu-cse/autograder-api/internal/service"
	"github.com/nsu-cse/autograder-api/internal/utils"
)

// GradeHandler handles submission batch grading requests.
type GradeHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(service service.GradingService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register wires grading routes.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Post("/grade", h.grade)
}

func (h *GradeHandler) grade(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form is required")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "no files uploaded")
	}

	rawConfig := "{}"
	if values := form.Value["config"]; len(values) > 0 && values[0] != "" {
		rawConfig = values[0]
	}

	result, err := h.service.Grade(c.UserContext(), files, rawConfig)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadConfig),
			errors.Is(err, service.ErrNoFiles),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrTooManyFiles):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("grading run failed")
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(dto.GradeResponse{
		Success:  true,
		Results:  result,
		ErrorLog: result.ErrorLog,
	})
}
