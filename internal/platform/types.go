package platform

// Config holds connection settings for the assessment platform API.
type Config struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Participant is one row's payload in a bulk invitation request. Optional
// attributes are omitted from the wire format when empty.
type Participant struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`
	Industry string `json:"industry,omitempty"`
	TeamSize string `json:"teamSize,omitempty"`
	Note     string `json:"note,omitempty"`
}

// BulkCreateRequest is the body of the bulk invitation-creation call.
type BulkCreateRequest struct {
	AssessmentID string        `json:"assessmentId"`
	Participants []Participant `json:"participants"`
	Notify       bool          `json:"notify"`
}

// Invitation is one successfully created invitation.
type Invitation struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EmailSummary reports notification dispatch outcomes for one chunk.
type EmailSummary struct {
	Sent   int          `json:"sent"`
	Failed int          `json:"failed"`
	Errors []EmailError `json:"errors,omitempty"`
}

// EmailError is a notification dispatch failure, keyed by participant email.
type EmailError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// ItemError is a per-participant creation failure. Index is the participant's
// position within the submitted chunk, not the whole import.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkCreateResponse is the platform's reply to a bulk creation call. The
// created count is the length of Invitations; EmailSummary is only present
// when notification dispatch was requested and enabled.
type BulkCreateResponse struct {
	Invitations  []Invitation  `json:"invitations"`
	EmailSummary *EmailSummary `json:"emailSummary,omitempty"`
	Errors       []ItemError   `json:"errors,omitempty"`
}

// CapabilityResponse is the reply to the notification capability query.
type CapabilityResponse struct {
	EmailEnabled bool `json:"emailEnabled"`
}
