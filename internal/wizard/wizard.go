// Package wizard sequences the import flow: upload, mapping, preview,
// import, results. It owns the session state machine, persists session
// snapshots in Redis under a TTL, and drives the chunked import run in the
// background.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/participant-importer/internal/history"
	"github.com/ignite/participant-importer/internal/importer"
	"github.com/ignite/participant-importer/internal/mapping"
	"github.com/ignite/participant-importer/internal/pkg/distlock"
	"github.com/ignite/participant-importer/internal/pkg/logger"
)

// Wizard states. Transitions only move along the table in the methods
// below; any other event in a given state is rejected with ErrInvalidState.
const (
	StateUploadPending = "upload_pending"
	StateMappingReady  = "mapping_ready"
	StatePreviewReady  = "preview_ready"
	StateImporting     = "importing"
	StateResultsReady  = "results_ready"
)

const (
	// SessionTTL bounds how long an abandoned wizard session survives.
	// Nothing outlives it; the pipeline has no durable state of its own.
	SessionTTL = 24 * time.Hour

	// importLockTTL caps how long a crashed import run can hold its
	// session lock.
	importLockTTL = 30 * time.Minute
)

var (
	ErrSessionNotFound  = errors.New("wizard session not found")
	ErrInvalidState     = errors.New("action not allowed in current wizard state")
	ErrRequiredUnmapped = errors.New("required fields are not mapped")
	ErrNoValidRows      = errors.New("no rows selected for import")
	ErrNoAssessment     = errors.New("assessment id is required")
	ErrImportRunning    = errors.New("an import is already running for this session")
	ErrRowIndex         = errors.New("row index out of range")
	ErrUnknownField     = errors.New("unknown system field")
)

// Session is one wizard's full state. It is serialized as JSON into Redis
// after every mutation; progress lives under its own key so import polling
// does not deserialize the whole session.
type Session struct {
	ID                   string                  `json:"id"`
	State                string                  `json:"state"`
	NotificationsEnabled bool                    `json:"notificationsEnabled"`
	Filename             string                  `json:"filename,omitempty"`
	Parsed               *importer.ParsedCSV     `json:"parsed,omitempty"`
	Mappings             []mapping.FieldMapping  `json:"mappings,omitempty"`
	Detection            mapping.NameDetection   `json:"detection"`
	RequiredMapped       bool                    `json:"requiredMapped"`
	Previews             []importer.RowPreview   `json:"previews,omitempty"`
	AssessmentID         string                  `json:"assessmentId,omitempty"`
	Results              *importer.ImportResults `json:"results,omitempty"`
	CreatedAt            time.Time               `json:"createdAt"`
}

// Platform is the slice of the assessment platform client the wizard needs.
type Platform interface {
	importer.BulkCreator
	NotificationsEnabled(ctx context.Context) (bool, error)
}

// Service runs wizard sessions over Redis.
type Service struct {
	redis    *redis.Client
	platform Platform
	history  *history.Store

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService creates a wizard service. historyStore may be nil when no
// database is configured; completed runs are then simply not recorded.
func NewService(redisClient *redis.Client, platformClient Platform, historyStore *history.Store) *Service {
	return &Service{
		redis:    redisClient,
		platform: platformClient,
		history:  historyStore,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// StartSession creates a fresh wizard session in the upload state. The
// notification capability is queried once here; if the query fails the
// option is treated as disabled rather than failing session creation.
func (s *Service) StartSession(ctx context.Context) (*Session, error) {
	enabled, err := s.platform.NotificationsEnabled(ctx)
	if err != nil {
		logger.Warn("capability query failed, notifications disabled", "error", err.Error())
		enabled = false
	}

	session := &Session{
		ID:                   uuid.New().String(),
		State:                StateUploadPending,
		NotificationsEnabled: enabled,
		CreatedAt:            time.Now().UTC(),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	logger.Info("wizard session started", "session_id", session.ID, "notifications", enabled)
	return session, nil
}

// Upload parses an uploaded CSV and advances the session to mapping. Parse
// failures leave the session in the upload state untouched.
func (s *Service) Upload(ctx context.Context, sessionID, filename string, reader io.Reader) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateUploadPending {
		return nil, ErrInvalidState
	}

	parsed, err := importer.ParseCSV(reader)
	if err != nil {
		return nil, err
	}

	mappings, detection := mapping.AutoMap(parsed.Headers)
	session.Filename = filename
	session.Parsed = parsed
	session.Mappings = mappings
	session.Detection = detection
	session.RequiredMapped = mapping.RequiredMapped(mappings)
	session.State = StateMappingReady

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	logger.Info("csv uploaded",
		"session_id", session.ID,
		"filename", filename,
		"headers", len(parsed.Headers),
		"rows", len(parsed.Rows))
	return session, nil
}

// SetMapping applies a manual mapping override for one system field. An
// empty column clears the mapping.
func (s *Service) SetMapping(ctx context.Context, sessionID, field, column string) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateMappingReady {
		return nil, ErrInvalidState
	}
	if !mapping.SetColumn(session.Mappings, field, column) {
		return nil, ErrUnknownField
	}
	session.RequiredMapped = mapping.RequiredMapped(session.Mappings)

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ConfirmMapping rebuilds name detection and the row previews from the
// current mappings and advances to the preview state. Previews are built
// exactly here; later mapping edits require re-confirming.
func (s *Service) ConfirmMapping(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateMappingReady {
		return nil, ErrInvalidState
	}
	if !mapping.RequiredMapped(session.Mappings) {
		return nil, ErrRequiredUnmapped
	}

	session.Detection = mapping.DetectName(session.Parsed.Headers)
	session.Previews = importer.BuildPreviews(session.Parsed, session.Mappings)
	session.State = StatePreviewReady

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Back navigates one step backwards. From mapping the parsed file and
// mappings are discarded; from preview the mappings survive and only the
// previews are dropped.
func (s *Service) Back(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case StateMappingReady:
		session.Filename = ""
		session.Parsed = nil
		session.Mappings = nil
		session.Detection = mapping.NameDetection{Type: mapping.NameNone, Columns: []string{}}
		session.RequiredMapped = false
		session.State = StateUploadPending
	case StatePreviewReady:
		session.Previews = nil
		session.State = StateMappingReady
	default:
		return nil, ErrInvalidState
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ToggleRow flips one preview row's inclusion decision. The row's
// validation outcome is untouched.
func (s *Service) ToggleRow(ctx context.Context, sessionID string, index int) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StatePreviewReady {
		return nil, ErrInvalidState
	}
	if index < 0 || index >= len(session.Previews) {
		return nil, ErrRowIndex
	}
	session.Previews[index].Excluded = !session.Previews[index].Excluded

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// StartImport launches the chunked import run in the background and moves
// the session to the importing state. The notify flag is forced off when
// the platform reported notification dispatch as disabled.
func (s *Service) StartImport(ctx context.Context, sessionID, assessmentID string, notify bool) (*Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StatePreviewReady {
		return nil, ErrInvalidState
	}
	if assessmentID == "" {
		return nil, ErrNoAssessment
	}
	validRows := importer.ValidRows(session.Previews)
	if len(validRows) == 0 {
		return nil, ErrNoValidRows
	}

	lock := distlock.NewRedisLock(s.redis, "import:"+sessionID, importLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrImportRunning
	}

	if !session.NotificationsEnabled {
		notify = false
	}

	session.AssessmentID = assessmentID
	session.State = StateImporting
	session.Results = nil
	if err := s.save(ctx, session); err != nil {
		lock.Release(ctx)
		return nil, err
	}
	s.setProgress(ctx, sessionID, 0)

	// The run outlives the HTTP request that started it. Close cancels
	// runCtx so an in-flight chunk submission is truly aborted.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[sessionID] = cancel
	s.mu.Unlock()

	go s.runImport(runCtx, sessionID, assessmentID, session.Filename, validRows, notify, lock)

	return session, nil
}

func (s *Service) runImport(ctx context.Context, sessionID, assessmentID, filename string, validRows []importer.RowPreview, notify bool, lock *distlock.RedisLock) {
	startedAt := time.Now().UTC()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, sessionID)
		s.mu.Unlock()
		lock.Release(context.Background())
	}()

	runner := importer.NewRunner(s.platform)
	runner.SetProgressFunc(func(pct int) {
		s.setProgress(context.Background(), sessionID, pct)
	})

	results := runner.Run(ctx, assessmentID, validRows, notify)

	// Persist with a fresh context: the run context may be cancelled,
	// but the results state must still be reachable.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, err := s.Get(saveCtx, sessionID)
	if err != nil {
		// Session closed mid-import; the run result has nowhere to go.
		logger.Warn("import finished for closed session", "session_id", sessionID)
		return
	}
	session.Results = results
	session.State = StateResultsReady
	if err := s.save(saveCtx, session); err != nil {
		logger.Error("failed to persist import results", "session_id", sessionID, "error", err.Error())
		return
	}

	if s.history != nil {
		rec := history.RunRecord{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			AssessmentID: assessmentID,
			Filename:     filename,
			TotalRows:    len(validRows),
			Created:      results.Created,
			EmailsSent:   results.EmailsSent,
			EmailsFailed: results.EmailsFailed,
			ErrorCount:   len(results.Errors),
			StartedAt:    startedAt,
			CompletedAt:  time.Now().UTC(),
		}
		if err := s.history.RecordRun(saveCtx, rec); err != nil {
			logger.Warn("failed to record import run", "session_id", sessionID, "error", err.Error())
		}
	}
}

// Progress returns the session state and the last published completion
// percentage for an import run.
func (s *Service) Progress(ctx context.Context, sessionID string) (state string, percent int, err error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", 0, err
	}
	pct, err := s.redis.Get(ctx, progressKey(sessionID)).Int()
	if err == redis.Nil {
		return session.State, 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return session.State, pct, nil
}

// Close tears the session down. Closing during an import cancels the run
// context, aborting the remaining chunks.
func (s *Service) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if cancel, ok := s.cancels[sessionID]; ok {
		cancel()
		delete(s.cancels, sessionID)
	}
	s.mu.Unlock()

	if err := s.redis.Del(ctx, sessionKey(sessionID), progressKey(sessionID)).Err(); err != nil {
		return err
	}
	logger.Info("wizard session closed", "session_id", sessionID)
	return nil
}

// Get loads a session snapshot.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("corrupt session data: %w", err)
	}
	return &session, nil
}

func (s *Service) save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.redis.Set(ctx, sessionKey(session.ID), data, SessionTTL).Err()
}

func (s *Service) setProgress(ctx context.Context, sessionID string, percent int) {
	if err := s.redis.Set(ctx, progressKey(sessionID), percent, SessionTTL).Err(); err != nil {
		logger.Warn("failed to publish progress", "session_id", sessionID, "error", err.Error())
	}
}

func sessionKey(id string) string  { return "wizard:session:" + id }
func progressKey(id string) string { return "wizard:progress:" + id }
