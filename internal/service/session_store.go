package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nsu-cse/autograder-api/internal/observability"
)

var (
	// ErrNotCSource indicates a file was rejected because it is not a C source file.
	ErrNotCSource = errors.New("only .c files are allowed")
	// ErrFileTooLarge indicates a file exceeded the per-file size ceiling.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrTooManyFiles indicates the batch exceeded the file-count ceiling.
	ErrTooManyFiles = errors.New("too many files in one batch")
)

// Session is an isolated storage scope for one batch of uploaded
// submissions. All files of one grading request share one session.
type Session struct {
	ID        string
	Dir       string
	CreatedAt time.Time

	mu       sync.Mutex
	accepted int
	reclaim  *time.Timer
}

// SessionStore manages isolated per-upload storage scopes.
type SessionStore interface {
	Begin() *Session
	Accept(session *Session, file *multipart.FileHeader) (string, error)
	ScheduleReclaim(session *Session)
	Reclaim(session *Session)
}

type sessionStore struct {
	root         string
	maxFileBytes int64
	maxFiles     int
	reclaimDelay time.Duration
	logger       zerolog.Logger
}

// NewSessionStore constructs a filesystem-backed session store rooted at dir.
func NewSessionStore(dir string, maxFileBytes int64, maxFiles int, reclaimDelay time.Duration, logger zerolog.Logger) SessionStore {
	if maxFileBytes <= 0 {
		maxFileBytes = 10 * 1024 * 1024
	}
	if maxFiles <= 0 {
		maxFiles = 1000
	}
	if reclaimDelay <= 0 {
		reclaimDelay = time.Minute
	}

	return &sessionStore{
		root:         dir,
		maxFileBytes: maxFileBytes,
		maxFiles:     maxFiles,
		reclaimDelay: reclaimDelay,
		logger:       logger.With().Str("component", "session_store").Logger(),
	}
}

// Begin opens a new session. The session directory is created lazily on
// the first accepted file.
func (s *sessionStore) Begin() *Session {
	id := uuid.NewString()

	return &Session{
		ID:        id,
		Dir:       filepath.Join(s.root, id),
		CreatedAt: time.Now(),
	}
}

// Accept validates one uploaded file and writes it into the session
// directory under its original name. Extension and content violations
// reject only the offending file; size and count violations reject the
// whole batch.
func (s *sessionStore) Accept(session *Session, file *multipart.FileHeader) (string, error) {
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".c") {
		observability.UploadRejected().WithLabelValues("extension").Inc()
		return "", fmt.Errorf("%s: %w", file.Filename, ErrNotCSource)
	}

	if file.Size > s.maxFileBytes {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return "", fmt.Errorf("%s: %w", file.Filename, ErrFileTooLarge)
	}

	session.mu.Lock()
	if session.accepted >= s.maxFiles {
		session.mu.Unlock()
		observability.UploadRejected().WithLabelValues("count").Inc()
		return "", ErrTooManyFiles
	}
	session.accepted++
	session.mu.Unlock()

	handle, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer handle.Close()

	content, err := io.ReadAll(io.LimitReader(handle, s.maxFileBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", file.Filename, err)
	}
	if int64(len(content)) > s.maxFileBytes {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return "", fmt.Errorf("%s: %w", file.Filename, ErrFileTooLarge)
	}

	if mime := mimetype.Detect(content); len(content) > 0 && !isTextual(mime.String()) {
		observability.UploadRejected().WithLabelValues("content").Inc()
		s.logger.Warn().Str("file", file.Filename).Str("mime", mime.String()).Msg("rejecting non-text payload with .c extension")
		return "", fmt.Errorf("%s: %w", file.Filename, ErrNotCSource)
	}

	if err := os.MkdirAll(session.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	// Original filename is kept; the engine's parser derives student and
	// question identity from it.
	dest := filepath.Join(session.Dir, filepath.Base(file.Filename))
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", fmt.Errorf("store upload %s: %w", file.Filename, err)
	}

	return dest, nil
}

// ScheduleReclaim arranges for the session directory to be removed after
// the retention window. It never blocks the request path, and rescheduling
// cancels any earlier timer.
func (s *sessionStore) ScheduleReclaim(session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.reclaim != nil {
		session.reclaim.Stop()
	}
	session.reclaim = time.AfterFunc(s.reclaimDelay, func() {
		s.Reclaim(session)
	})
}

// Reclaim removes the session directory immediately. Removal is
// best-effort and idempotent: a directory that is already gone is not an
// error, and failures are logged rather than raised since reclamation
// runs outside any request context.
func (s *sessionStore) Reclaim(session *Session) {
	if err := os.RemoveAll(session.Dir); err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("session reclamation failed")
		return
	}

	s.logger.Info().Str("session_id", session.ID).Msg("session reclaimed")
}

func isTextual(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	// mimetype reports empty files as inode/x-empty and some C sources as
	// specific source types.
	switch mime {
	case "application/octet-stream":
		return false
	case "inode/x-empty":
		return true
	}
	return strings.Contains(mime, "src") || strings.Contains(mime, "xml") || strings.Contains(mime, "json")
}
