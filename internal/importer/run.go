package importer

import (
	"context"
	"math"

	"github.com/ignite/participant-importer/internal/mapping"
	"github.com/ignite/participant-importer/internal/pkg/logger"
	"github.com/ignite/participant-importer/internal/platform"
)

// ChunkSize is the number of rows submitted per bulk-creation call.
const ChunkSize = 50

// BulkCreator is the slice of the platform client the import run needs.
type BulkCreator interface {
	CreateInvitations(ctx context.Context, assessmentID string, participants []platform.Participant, notify bool) (*platform.BulkCreateResponse, error)
}

// RowError is one failure entry in the aggregated import results. For
// per-item creation errors Row is the absolute row offset in the submitted
// set. Notification errors carry the chunk's start offset and a transport
// abort carries row 0; both are coarse by inheritance from the original
// pipeline and are kept as-is.
type RowError struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// ImportResults accumulates created/notified/failed counts and per-row
// errors monotonically across chunks. Terminal once a run finishes.
type ImportResults struct {
	Created      int        `json:"created"`
	EmailsSent   int        `json:"emailsSent"`
	EmailsFailed int        `json:"emailsFailed"`
	Errors       []RowError `json:"errors"`
}

// Runner drives a chunked import of valid rows against the platform. Chunks
// are submitted strictly sequentially; a transport-level failure aborts all
// remaining chunks, while structured per-item errors do not.
type Runner struct {
	client     BulkCreator
	onProgress func(percent int)
}

// NewRunner creates an import runner over the given bulk-creation client.
func NewRunner(client BulkCreator) *Runner {
	return &Runner{client: client}
}

// SetProgressFunc registers a callback invoked with the rounded completion
// percentage after every processed chunk.
func (r *Runner) SetProgressFunc(fn func(percent int)) {
	r.onProgress = fn
}

// Run partitions rows into chunks of ChunkSize and submits them in order.
// It always returns a results snapshot: on a transport failure (including
// context cancellation) the remaining chunks are skipped, a single coarse
// error entry is recorded, and whatever was accumulated so far is returned.
func (r *Runner) Run(ctx context.Context, assessmentID string, rows []RowPreview, notify bool) *ImportResults {
	results := &ImportResults{Errors: []RowError{}}
	total := len(rows)
	if total == 0 {
		return results
	}

	processed := 0
	for offset := 0; offset < total; offset += ChunkSize {
		end := offset + ChunkSize
		if end > total {
			end = total
		}
		chunk := rows[offset:end]

		participants := make([]platform.Participant, len(chunk))
		for i, row := range chunk {
			participants[i] = toParticipant(row)
		}

		resp, err := r.client.CreateInvitations(ctx, assessmentID, participants, notify)
		if err != nil {
			logger.Error("bulk create failed, aborting import",
				"assessment_id", assessmentID, "chunk_offset", offset, "error", err.Error())
			results.Errors = append(results.Errors, RowError{Row: 0, Email: "", Error: err.Error()})
			processed += len(chunk)
			r.publish(processed, total)
			return results
		}

		results.Created += len(resp.Invitations)
		if resp.EmailSummary != nil {
			results.EmailsSent += resp.EmailSummary.Sent
			results.EmailsFailed += resp.EmailSummary.Failed
			for _, e := range resp.EmailSummary.Errors {
				results.Errors = append(results.Errors, RowError{Row: offset, Email: e.Email, Error: e.Error})
			}
		}
		for _, item := range resp.Errors {
			abs := offset + item.Index
			email := "unknown"
			if abs >= 0 && abs < total {
				if v := rows[abs].Email(); v != "" {
					email = v
				}
			}
			results.Errors = append(results.Errors, RowError{Row: abs, Email: email, Error: item.Error})
		}

		processed += len(chunk)
		r.publish(processed, total)
	}

	logger.Info("import run complete",
		"assessment_id", assessmentID,
		"created", results.Created,
		"emails_sent", results.EmailsSent,
		"emails_failed", results.EmailsFailed,
		"errors", len(results.Errors))

	return results
}

func (r *Runner) publish(processed, total int) {
	if r.onProgress == nil {
		return
	}
	pct := math.Round(math.Min(100, float64(processed)/float64(total)*100))
	r.onProgress(int(pct))
}

// toParticipant maps a validated row onto the platform payload. Optional
// attributes are carried only when non-empty.
func toParticipant(row RowPreview) platform.Participant {
	return platform.Participant{
		Name:     row.Values[mapping.FieldName],
		Email:    row.Values[mapping.FieldEmail],
		Company:  row.Values[mapping.FieldCompany],
		Role:     row.Values[mapping.FieldRole],
		Industry: row.Values[mapping.FieldIndustry],
		TeamSize: row.Values[mapping.FieldTeamSize],
		Note:     row.Values[mapping.FieldNote],
	}
}
