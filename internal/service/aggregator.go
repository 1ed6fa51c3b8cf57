package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

// ErrMalformedResponse indicates the engine response envelope failed
// structural validation and no usable result could be extracted.
var ErrMalformedResponse = errors.New("grading engine returned a malformed response")

// engineResponseSchema is the strict shape contract for the grading
// engine payload. Only the envelope is enforced here; per-student
// irregularities are coerced by the aggregator instead of rejected.
const engineResponseSchema = `{
  "type": "object",
  "required": ["totalStudents", "averageScore", "highestScore", "lowestScore", "perfectScores", "studentsWithErrors", "students"],
  "properties": {
    "totalStudents": {"type": "integer", "minimum": 0},
    "averageScore": {"type": "number"},
    "highestScore": {"type": "number"},
    "lowestScore": {"type": "number"},
    "perfectScores": {"type": "integer", "minimum": 0},
    "studentsWithErrors": {"type": "integer", "minimum": 0},
    "students": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "questions": {"type": "array", "items": {"type": "number"}},
          "total": {"type": "number"}
        }
      }
    },
    "errorLog": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["student"],
        "properties": {
          "student": {"type": "string"},
          "question": {"type": "integer"},
          "filename": {"type": "string"},
          "message": {"type": "string"}
        }
      }
    },
    "distribution": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "score": {"type": "number"},
          "count": {"type": "integer"}
        }
      }
    }
  }
}`

const scoreEpsilon = 1e-6

// Aggregator normalizes raw engine responses into the canonical result
// model used by all downstream artifacts.
type Aggregator struct {
	schema *jsonschema.Schema
	logger zerolog.Logger
}

// NewAggregator compiles the engine response schema and returns an aggregator.
func NewAggregator(logger zerolog.Logger) (*Aggregator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("engine-response.json", strings.NewReader(engineResponseSchema)); err != nil {
		return nil, fmt.Errorf("add engine response schema: %w", err)
	}

	schema, err := compiler.Compile("engine-response.json")
	if err != nil {
		return nil, fmt.Errorf("compile engine response schema: %w", err)
	}

	return &Aggregator{
		schema: schema,
		logger: logger.With().Str("component", "aggregator").Logger(),
	}, nil
}

// Normalize validates the raw engine response at the boundary and coerces
// per-student irregularities to safe defaults. Engine-computed statistics
// are passed through as-is; a partially malformed student record never
// prevents viewing the rest of the class's grades.
func (a *Aggregator) Normalize(raw json.RawMessage, cfg dto.GradingConfig) (dto.GradingResult, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return dto.GradingResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := a.schema.Validate(generic); err != nil {
		a.logger.Error().Err(err).Msg("engine response failed schema validation")
		return dto.GradingResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var result dto.GradingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return dto.GradingResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result.Students = a.normalizeStudents(result.Students, cfg)

	if result.ErrorLog == nil {
		result.ErrorLog = []dto.CompilationError{}
	}
	if result.Distribution == nil {
		result.Distribution = []dto.ScoreBucket{}
	}

	return result, nil
}

// normalizeStudents enforces the per-student invariants: unique names,
// questions length equal to totalQuestions, and total consistent with
// the question scores. Violations are repaired and logged, not fatal.
func (a *Aggregator) normalizeStudents(students []dto.StudentResult, cfg dto.GradingConfig) []dto.StudentResult {
	seen := make(map[string]bool, len(students))
	normalized := make([]dto.StudentResult, 0, len(students))

	for _, student := range students {
		if seen[student.Name] {
			a.logger.Warn().Str("student", student.Name).Msg("duplicate student name in engine response, keeping first occurrence")
			continue
		}
		seen[student.Name] = true

		if len(student.Questions) != cfg.TotalQuestions {
			a.logger.Warn().
				Str("student", student.Name).
				Int("got", len(student.Questions)).
				Int("want", cfg.TotalQuestions).
				Msg("question count mismatch, padding missing scores with zero")

			questions := make([]float64, cfg.TotalQuestions)
			copy(questions, student.Questions)
			student.Questions = questions
		}

		var sum float64
		for _, score := range student.Questions {
			sum += score
		}
		if math.Abs(sum-student.Total) > scoreEpsilon {
			// Engine-computed total is trusted; the mismatch is only
			// recorded for operator visibility.
			a.logger.Warn().
				Str("student", student.Name).
				Float64("total", student.Total).
				Float64("sum", sum).
				Msg("student total does not match question sum")
		}

		normalized = append(normalized, student)
	}

	return normalized
}
