// Package engine provides the HTTP client for the external grading
// engine. The engine compiles a session directory of C submissions and
// returns per-student scores, an error list, and summary statistics;
// this package only defines the request/response contract.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

var (
	engineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "autograder",
		Subsystem: "engine",
		Name:      "request_duration_seconds",
		Help:      "Duration of grading engine requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	engineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autograder",
		Subsystem: "engine",
		Name:      "request_failures_total",
		Help:      "Number of failed grading engine requests",
	}, []string{"reason"})
)

// EngineError carries a failure reported by the grading engine itself,
// as opposed to a transport-level problem reaching it.
type EngineError struct {
	Status  int
	Message string
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("grading engine returned status %d", e.Status)
}

// Config defines configuration options for the engine client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client talks to the external grading engine over HTTP. Grading is
// expensive and side-effecting on the engine side, so the client never
// retries; a retry is a new explicit submission.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// New builds a grading engine client from the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base url is required")
	}

	// Must exceed the engine's own per-file compilation timeout times a
	// worst-case student count; the engine compiles many files per run.
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		tracer:  otel.Tracer("github.com/nsu-cse/autograder-api/pkg/engine"),
		logger:  cfg.Logger.With().Str("component", "engine_client").Logger(),
	}, nil
}

type gradeRequest struct {
	SessionDir string            `json:"sessionDir"`
	Config     dto.GradingConfig `json:"config"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Grade submits the session directory and grading configuration to the
// engine and blocks until it responds or the client times out. The raw
// response body is returned for the aggregator to validate; the engine
// payload is treated as opaque beyond its documented shape.
func (c *Client) Grade(parent context.Context, sessionDir string, cfg dto.GradingConfig) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(parent, "engine.grade", trace.WithAttributes(
		attribute.String("engine.session_dir", sessionDir),
		attribute.Int("engine.total_questions", cfg.TotalQuestions),
	))
	defer span.End()

	payload, err := json.Marshal(gradeRequest{SessionDir: sessionDir, Config: cfg})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, fmt.Errorf("encode grade request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/grade", bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return nil, fmt.Errorf("build grade request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	engineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		engineFailures.WithLabelValues("transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("grading engine timed out: %w", err)
		}
		return nil, fmt.Errorf("grading engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		engineFailures.WithLabelValues("read").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("read grading engine response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		engineFailures.WithLabelValues("status").Inc()
		engineErr := &EngineError{Status: resp.StatusCode}
		var parsed errorPayload
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			engineErr.Message = parsed.Error
		}
		span.RecordError(engineErr)
		span.SetStatus(codes.Error, engineErr.Error())
		c.logger.Error().Int("status", resp.StatusCode).Str("message", engineErr.Message).Msg("engine reported failure")
		return nil, engineErr
	}

	span.SetStatus(codes.Ok, "graded")

	return json.RawMessage(body), nil
}

// Ping checks that the grading engine is reachable and healthy.
func (c *Client) Ping(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("grading engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &EngineError{Status: resp.StatusCode}
	}

	return nil
}
