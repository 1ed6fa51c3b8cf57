package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nsu-cse/autograder-api/internal/dto"
	"github.com/nsu-cse/autograder-api/internal/observability"
)

var (
	// ErrNoFiles indicates the batch contained no acceptable source files.
	ErrNoFiles = errors.New("no source files provided")
	// ErrBadConfig indicates the grading configuration was malformed or invalid.
	ErrBadConfig = errors.New("invalid grading configuration")
)

// EngineClient is the contract with the external grading engine.
type EngineClient interface {
	Grade(ctx context.Context, sessionDir string, cfg dto.GradingConfig) (json.RawMessage, error)
}

// GradingService runs the full intake, delegation, and publication
// pipeline for one submission batch.
type GradingService interface {
	Grade(ctx context.Context, files []*multipart.FileHeader, rawConfig string) (dto.GradingResult, error)
}

type gradingService struct {
	sessions   SessionStore
	engine     EngineClient
	aggregator *Aggregator
	registry   *ResultRegistry
	validate   *validator.Validate
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewGradingService constructs the grading orchestration service.
func NewGradingService(sessions SessionStore, engine EngineClient, aggregator *Aggregator, registry *ResultRegistry, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		sessions:   sessions,
		engine:     engine,
		aggregator: aggregator,
		registry:   registry,
		validate:   validate,
		tracer:     otel.Tracer("github.com/nsu-cse/autograder-api/internal/service/grading"),
		logger:     logger.With().Str("component", "grading_service").Logger(),
	}
}

// Grade materializes the batch into an isolated session, delegates to
// the grading engine, and publishes the normalized outcome. The request
// blocks until the engine responds or times out; a delegate failure
// leaves the previously published run untouched.
func (s *gradingService) Grade(ctx context.Context, files []*multipart.FileHeader, rawConfig string) (dto.GradingResult, error) {
	ctx, span := s.tracer.Start(ctx, "grading.run", trace.WithAttributes(
		attribute.Int("grading.file_count", len(files)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.GradingDuration().Observe(time.Since(start).Seconds())
	}()

	cfg, err := s.parseConfig(rawConfig)
	if err != nil {
		observability.GradingRequests().WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid config")
		return dto.GradingResult{}, err
	}

	if len(files) == 0 {
		observability.GradingRequests().WithLabelValues("rejected").Inc()
		span.RecordError(ErrNoFiles)
		span.SetStatus(codes.Error, "empty batch")
		return dto.GradingResult{}, ErrNoFiles
	}

	session := s.sessions.Begin()
	span.SetAttributes(attribute.String("grading.session_id", session.ID))

	accepted := 0
	for _, file := range files {
		if _, err := s.sessions.Accept(session, file); err != nil {
			// An unacceptable extension skips the single file; size and
			// count violations reject the whole batch.
			if errors.Is(err, ErrNotCSource) {
				s.logger.Warn().Str("file", file.Filename).Msg("skipping non-C submission file")
				continue
			}

			observability.GradingRequests().WithLabelValues("rejected").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch rejected")
			s.sessions.Reclaim(session)
			return dto.GradingResult{}, err
		}
		accepted++
	}

	if accepted == 0 {
		observability.GradingRequests().WithLabelValues("rejected").Inc()
		span.RecordError(ErrNoFiles)
		span.SetStatus(codes.Error, "no files accepted")
		s.sessions.Reclaim(session)
		return dto.GradingResult{}, fmt.Errorf("no .c files in batch: %w", ErrNoFiles)
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Int("accepted", accepted).
		Int("received", len(files)).
		Msg("submission batch stored, delegating to grading engine")

	// The session stays around for the retention window after the engine
	// responds, whatever the outcome.
	defer s.sessions.ScheduleReclaim(session)

	raw, err := s.engine.Grade(ctx, session.Dir, cfg)
	if err != nil {
		observability.GradingRequests().WithLabelValues("engine_failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine call failed")
		return dto.GradingResult{}, err
	}

	result, err := s.aggregator.Normalize(raw, cfg)
	if err != nil {
		observability.GradingRequests().WithLabelValues("engine_failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalization failed")
		return dto.GradingResult{}, err
	}

	s.registry.Publish(result, cfg)
	s.writeInitialArtifacts(session.ID)

	observability.GradingRequests().WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "graded")
	s.logger.Info().
		Str("session_id", session.ID).
		Int("students", result.TotalStudents).
		Int("errors", len(result.ErrorLog)).
		Msg("grading run published")

	return result, nil
}

func (s *gradingService) parseConfig(rawConfig string) (dto.GradingConfig, error) {
	var cfg dto.GradingConfig
	if err := json.Unmarshal([]byte(rawConfig), &cfg); err != nil {
		return dto.GradingConfig{}, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	if err := s.validate.Struct(cfg); err != nil {
		return dto.GradingConfig{}, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	return cfg, nil
}

// writeInitialArtifacts renders both artifacts right after a successful
// run. Downloads regenerate from the registry anyway, so a failure here
// is logged and does not fail the run.
func (s *gradingService) writeInitialArtifacts(sessionID string) {
	if _, err := s.registry.GenerateWorkbook(); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("initial workbook generation failed")
	}
	if _, err := s.registry.GenerateErrorLog(); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("initial error log generation failed")
	}
}
