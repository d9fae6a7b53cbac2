package api

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/participant-importer/internal/history"
	"github.com/ignite/participant-importer/internal/importer"
	"github.com/ignite/participant-importer/internal/mapping"
	"github.com/ignite/participant-importer/internal/pkg/httputil"
	"github.com/ignite/participant-importer/internal/wizard"
)

// Handlers provides the HTTP handlers for the import wizard API.
type Handlers struct {
	wizard         *wizard.Service
	history        *history.Store
	maxUploadBytes int64
}

// NewHandlers creates a new handler instance. historyStore may be nil.
func NewHandlers(wizardService *wizard.Service, historyStore *history.Store, maxUploadBytes int64) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handlers{
		wizard:         wizardService,
		history:        historyStore,
		maxUploadBytes: maxUploadBytes,
	}
}

// HealthCheck returns service liveness
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleCreateSession starts a new import wizard session
// POST /api/imports
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.wizard.StartSession(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, sessionView(session))
}

// HandleGetFields returns the system fields available for mapping
// GET /api/imports/fields
func (h *Handlers) HandleGetFields(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"fields":          mapping.Fields,
		"required_fields": mapping.RequiredFields(),
	})
}

// HandleGetSession returns the current session snapshot
// GET /api/imports/{sessionId}
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.wizard.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// HandleUpload accepts the CSV file and advances the session to mapping
// POST /api/imports/{sessionId}/upload
// Content-Type: multipart/form-data with a "file" field
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httputil.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	if !isCSVUpload(header.Filename, header.Header.Get("Content-Type")) {
		httputil.Error(w, http.StatusUnsupportedMediaType, "only CSV files are accepted")
		return
	}

	session, err := h.wizard.Upload(r.Context(), sessionID, header.Filename, file)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// SetMappingRequest is the body for a manual mapping override.
type SetMappingRequest struct {
	Field  string `json:"field"`
	Column string `json:"column"`
}

// HandleSetMapping applies a manual mapping override
// PUT /api/imports/{sessionId}/mappings
func (h *Handlers) HandleSetMapping(w http.ResponseWriter, r *http.Request) {
	var req SetMappingRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Field == "" {
		httputil.BadRequest(w, "field is required")
		return
	}

	session, err := h.wizard.SetMapping(r.Context(), chi.URLParam(r, "sessionId"), req.Field, req.Column)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// HandleConfirmMapping builds the row previews and advances to preview
// POST /api/imports/{sessionId}/confirm
func (h *Handlers) HandleConfirmMapping(w http.ResponseWriter, r *http.Request) {
	session, err := h.wizard.ConfirmMapping(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// HandleBack navigates one wizard step backwards
// POST /api/imports/{sessionId}/back
func (h *Handlers) HandleBack(w http.ResponseWriter, r *http.Request) {
	session, err := h.wizard.Back(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// HandleToggleRow flips one preview row's inclusion
// POST /api/imports/{sessionId}/rows/{index}/toggle
func (h *Handlers) HandleToggleRow(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.BadRequest(w, "invalid row index")
		return
	}

	session, err := h.wizard.ToggleRow(r.Context(), chi.URLParam(r, "sessionId"), index)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, sessionView(session))
}

// StartImportRequest is the body for launching the import run.
type StartImportRequest struct {
	AssessmentID string `json:"assessment_id"`
	Notify       bool   `json:"notify"`
}

// HandleStartImport launches the import run
// POST /api/imports/{sessionId}/start
func (h *Handlers) HandleStartImport(w http.ResponseWriter, r *http.Request) {
	var req StartImportRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	session, err := h.wizard.StartImport(r.Context(), chi.URLParam(r, "sessionId"), req.AssessmentID, req.Notify)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.JSON(w, http.StatusAccepted, sessionView(session))
}

// HandleProgress returns the import run progress
// GET /api/imports/{sessionId}/progress
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	state, percent, err := h.wizard.Progress(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"state":   state,
		"percent": percent,
	})
}

// HandleResults returns the final import results
// GET /api/imports/{sessionId}/results
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	session, err := h.wizard.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	if session.State != wizard.StateResultsReady || session.Results == nil {
		httputil.Conflict(w, "results are not ready")
		return
	}
	httputil.OK(w, session.Results)
}

// HandleCloseSession tears the session down, cancelling any running import
// DELETE /api/imports/{sessionId}
func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Close(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// HandleListHistory returns recent completed import runs
// GET /api/imports/history
func (h *Handlers) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.OK(w, map[string]any{"runs": []history.RunRecord{}})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if runs == nil {
		runs = []history.RunRecord{}
	}
	httputil.OK(w, map[string]any{"runs": runs})
}

func (h *Handlers) writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		httputil.NotFound(w, "session not found")
	case errors.Is(err, wizard.ErrInvalidState):
		httputil.Conflict(w, "action not allowed in current wizard state")
	case errors.Is(err, wizard.ErrImportRunning):
		httputil.Conflict(w, "an import is already running for this session")
	case errors.Is(err, wizard.ErrRequiredUnmapped):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "required_unmapped", "name and email must be mapped")
	case errors.Is(err, wizard.ErrNoValidRows):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "no_valid_rows", "no rows selected for import")
	case errors.Is(err, wizard.ErrNoAssessment):
		httputil.BadRequest(w, "assessment_id is required")
	case errors.Is(err, wizard.ErrUnknownField):
		httputil.BadRequest(w, "unknown system field")
	case errors.Is(err, wizard.ErrRowIndex):
		httputil.BadRequest(w, "row index out of range")
	case errors.Is(err, importer.ErrEmptyFile):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "empty_file", "file is empty")
	case errors.Is(err, importer.ErrNoHeaders):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "no_headers", "CSV file must have a header row")
	case errors.Is(err, importer.ErrNoDataRows):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "no_data_rows", "CSV file has no data rows")
	default:
		httputil.InternalError(w, err)
	}
}

func isCSVUpload(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/csv", "application/csv", "application/vnd.ms-excel":
		return true
	}
	return false
}

// sessionView shapes a session for API responses. Raw parsed rows are kept
// server-side; clients see headers, mappings and the validated previews.
func sessionView(s *wizard.Session) map[string]any {
	view := map[string]any{
		"id":                    s.ID,
		"state":                 s.State,
		"notifications_enabled": s.NotificationsEnabled,
		"required_mapped":       s.RequiredMapped,
		"created_at":            s.CreatedAt,
	}
	if s.Filename != "" {
		view["filename"] = s.Filename
	}
	if s.Parsed != nil {
		view["headers"] = s.Parsed.Headers
		view["row_count"] = len(s.Parsed.Rows)
		view["unmapped_columns"] = mapping.UnmappedColumns(s.Parsed.Headers, s.Mappings)
	}
	if s.Mappings != nil {
		view["mappings"] = s.Mappings
		view["name_detection"] = s.Detection
	}
	if s.Previews != nil {
		view["previews"] = s.Previews
		view["valid_count"] = len(importer.ValidRows(s.Previews))
	}
	if s.AssessmentID != "" {
		view["assessment_id"] = s.AssessmentID
	}
	if s.Results != nil {
		view["results"] = s.Results
	}
	return view
}
