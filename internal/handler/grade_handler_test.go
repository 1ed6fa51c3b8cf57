package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nsu-cse/autograder-api/internal/dto"
	"github.com/nsu-cse/autograder-api/internal/handler"
	"github.com/nsu-cse/autograder-api/internal/service"
)

type mockGradingService struct {
	result     dto.GradingResult
	err        error
	lastConfig string
	fileCount  int
}

func (m *mockGradingService) Grade(_ context.Context, files []*multipart.FileHeader, rawConfig string) (dto.GradingResult, error) {
	m.fileCount = len(files)
	m.lastConfig = rawConfig
	if m.err != nil {
		return dto.GradingResult{}, m.err
	}
	return m.result, nil
}

func newGradeApp(svc service.GradingService) *fiber.App {
	app := fiber.New()
	handler.NewGradeHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api"))
	return app
}

func buildGradeRequest(t *testing.T, files map[string]string, config string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if config != "" {
		require.NoError(t, writer.WriteField("config", config))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/grade", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestGradeHandlerSuccess(t *testing.T) {
	svc := &mockGradingService{
		result: dto.GradingResult{
			TotalStudents: 1,
			Students:      []dto.StudentResult{{Name: "alice", Questions: []float64{2.5, 2.5}, Total: 5}},
			ErrorLog:      []dto.CompilationError{},
		},
	}
	app := newGradeApp(svc)

	req := buildGradeRequest(t, map[string]string{"alice_123_q1.c": "int main(void){return 0;}"}, `{"totalQuestions":2}`)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response dto.GradeResponse
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, 1, response.Results.TotalStudents)
	require.Equal(t, 1, svc.fileCount)
	require.Equal(t, `{"totalQuestions":2}`, svc.lastConfig)
}

func TestGradeHandlerRejectsEmptyBatch(t *testing.T) {
	svc := &mockGradingService{}
	app := newGradeApp(svc)

	req := buildGradeRequest(t, nil, `{"totalQuestions":2}`)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// The delegate must never be contacted for an empty batch.
	require.Zero(t, svc.fileCount)
}

func TestGradeHandlerErrorTranslation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "bad_config", err: service.ErrBadConfig, statusCode: fiber.StatusBadRequest},
		{name: "no_files", err: service.ErrNoFiles, statusCode: fiber.StatusBadRequest},
		{name: "file_too_large", err: service.ErrFileTooLarge, statusCode: fiber.StatusBadRequest},
		{name: "too_many_files", err: service.ErrTooManyFiles, statusCode: fiber.StatusBadRequest},
		{name: "engine_failure", err: errors.New("grading engine unreachable"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockGradingService{err: tc.err}
			app := newGradeApp(svc)

			req := buildGradeRequest(t, map[string]string{"a_1_1.c": "x"}, "")
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.NotEmpty(t, response.Error)
		})
	}
}

func TestGradeHandlerDefaultsConfigToEmptyObject(t *testing.T) {
	svc := &mockGradingService{}
	app := newGradeApp(svc)

	req := buildGradeRequest(t, map[string]string{"a_1_1.c": "x"}, "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "{}", svc.lastConfig)
}
