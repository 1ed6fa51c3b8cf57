package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsu-cse/autograder-api/internal/dto"
	"github.com/nsu-cse/autograder-api/internal/report"
)

// ErrNoResults indicates no grading run has succeeded yet.
var ErrNoResults = errors.New("no results available, run grading first")

// ResultRegistry is the single-slot store holding the most recent
// successful grading run and its configuration. Each successful run
// replaces the slot wholesale; result and configuration are always
// swapped together so a reader never observes a mismatched pair.
type ResultRegistry struct {
	mu     sync.RWMutex
	result dto.GradingResult
	config dto.GradingConfig
	loaded bool

	resultsDir string
	author     string
	logger     zerolog.Logger
}

// NewResultRegistry constructs a registry writing artifacts under resultsDir.
func NewResultRegistry(resultsDir, author string, logger zerolog.Logger) *ResultRegistry {
	return &ResultRegistry{
		resultsDir: resultsDir,
		author:     author,
		logger:     logger.With().Str("component", "result_registry").Logger(),
	}
}

// Publish replaces the registry slot with a new run outcome.
func (r *ResultRegistry) Publish(result dto.GradingResult, cfg dto.GradingConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result = result
	r.config = cfg
	r.loaded = true
}

// Snapshot returns a copy of the current slot. The boolean reports
// whether any run has been published.
func (r *ResultRegistry) Snapshot() (dto.GradingResult, dto.GradingConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.result, r.config, r.loaded
}

// GenerateWorkbook regenerates the spreadsheet artifact from the current
// slot and returns the path of the file just written. Regeneration on
// every call guarantees the download always reflects the latest run; the
// returned handle is consumed directly, so no directory scan is needed
// to find "the newest" file.
func (r *ResultRegistry) GenerateWorkbook() (string, error) {
	result, cfg, ok := r.Snapshot()
	if !ok {
		return "", ErrNoResults
	}

	workbook, err := report.BuildWorkbook(result, cfg, report.WorkbookOptions{
		Author:  r.author,
		Created: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("build workbook: %w", err)
	}
	defer workbook.Close()

	if err := os.MkdirAll(r.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	path := filepath.Join(r.resultsDir, fmt.Sprintf("Grades_%d.xlsx", time.Now().UnixNano()))
	if err := workbook.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	r.logger.Info().Str("path", path).Msg("workbook generated")

	return path, nil
}

// GenerateErrorLog regenerates the plain-text error log artifact from
// the current slot and returns the path of the file just written.
func (r *ResultRegistry) GenerateErrorLog() (string, error) {
	result, cfg, ok := r.Snapshot()
	if !ok {
		return "", ErrNoResults
	}

	content := report.BuildErrorLog(result, cfg, time.Now())

	if err := os.MkdirAll(r.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	path := filepath.Join(r.resultsDir, fmt.Sprintf("Error_Log_%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("save error log: %w", err)
	}

	r.logger.Info().Str("path", path).Msg("error log generated")

	return path, nil
}
