package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nsu-cse/autograder-api/internal/dto"
)

func testConfig() dto.GradingConfig {
	return dto.GradingConfig{
		TotalQuestions:     2,
		MarksPerQuestion:   2.5,
		CompilationTimeout: 60,
		CourseName:         "CSE115",
		SectionName:        "Section 10",
		AssignmentName:     "Assignment 2",
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := New(Config{BaseURL: url, Timeout: 2 * time.Second, Logger: zerolog.New(io.Discard)})
	require.NoError(t, err)
	return client
}

func TestClientRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestClientGradeSuccess(t *testing.T) {
	var received struct {
		SessionDir string            `json:"sessionDir"`
		Config     dto.GradingConfig `json:"config"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/grade", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalStudents": 1, "students": []}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	raw, err := client.Grade(context.Background(), "/tmp/uploads/abc", testConfig())
	require.NoError(t, err)
	require.JSONEq(t, `{"totalStudents": 1, "students": []}`, string(raw))
	require.Equal(t, "/tmp/uploads/abc", received.SessionDir)
	require.Equal(t, 2, received.Config.TotalQuestions)
}

func TestClientGradeEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success": false, "error": "No .c files found in the uploaded files"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Grade(context.Background(), "/tmp/uploads/abc", testConfig())
	require.Error(t, err)

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, http.StatusBadRequest, engineErr.Status)
	require.Equal(t, "No .c files found in the uploaded files", engineErr.Message)
	require.Equal(t, engineErr.Message, engineErr.Error())
}

func TestClientGradeEngineErrorWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Grade(context.Background(), "/tmp/uploads/abc", testConfig())

	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Contains(t, engineErr.Error(), "500")
}

func TestClientGradeTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Grade(context.Background(), "/tmp/uploads/abc", testConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unreachable")
}

func TestClientPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Ping(context.Background()))
}

func TestClientPingUnhealthyEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.Error(t, client.Ping(context.Background()))
}
