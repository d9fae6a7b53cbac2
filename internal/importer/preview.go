package importer

import (
	"regexp"
	"strings"

	"github.com/ignite/participant-importer/internal/mapping"
)

// Row-level validation messages surfaced in the preview.
const (
	MsgMissingName    = "Missing name"
	MsgMissingEmail   = "Missing email"
	MsgInvalidEmail   = "Invalid email format"
	MsgDuplicateEmail = "Duplicate email in CSV"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RowPreview is one validated row of the upload. Errors and Warnings are the
// immutable validation outcome; Excluded starts as "has errors" but is a
// separate, user-editable inclusion decision and may diverge from it.
type RowPreview struct {
	Index    int               `json:"index"`
	Values   map[string]string `json:"values"`
	Excluded bool              `json:"excluded"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
}

// Email returns the row's extracted email value.
func (p RowPreview) Email() string {
	return p.Values[mapping.FieldEmail]
}

// ExtractValue resolves one mapped field for a row: empty for an unmapped
// field, the joined non-empty first/last parts for a composite name column,
// or the trimmed cell value otherwise. Missing keys read as empty.
func ExtractValue(row map[string]string, m mapping.FieldMapping) string {
	if m.Column == "" {
		return ""
	}
	if first, last, ok := mapping.SplitComposite(m.Column); ok {
		var parts []string
		for _, col := range []string{first, last} {
			if v := strings.TrimSpace(row[col]); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}
	return strings.TrimSpace(row[m.Column])
}

// ValidEmail reports whether s has the accepted email shape: a single "@"
// with non-whitespace on both sides and a dot in the domain part.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// BuildPreviews applies the mappings to every parsed row and classifies each
// with errors and warnings. Duplicate email detection is case-insensitive
// and intra-batch only: the first occurrence never gets the warning, every
// later one does. A row starts excluded exactly when it has errors.
func BuildPreviews(parsed *ParsedCSV, mappings []mapping.FieldMapping) []RowPreview {
	previews := make([]RowPreview, 0, len(parsed.Rows))
	seenEmails := make(map[string]bool)

	for i, row := range parsed.Rows {
		p := RowPreview{
			Index:    i,
			Values:   make(map[string]string, len(mappings)),
			Errors:   []string{},
			Warnings: []string{},
		}
		for _, m := range mappings {
			p.Values[m.Field] = ExtractValue(row, m)
		}

		if p.Values[mapping.FieldName] == "" {
			p.Errors = append(p.Errors, MsgMissingName)
		}

		email := p.Values[mapping.FieldEmail]
		if email == "" {
			p.Errors = append(p.Errors, MsgMissingEmail)
		} else if !ValidEmail(email) {
			p.Errors = append(p.Errors, MsgInvalidEmail)
		}

		if email != "" {
			lower := strings.ToLower(email)
			if seenEmails[lower] {
				p.Warnings = append(p.Warnings, MsgDuplicateEmail)
			}
			seenEmails[lower] = true
		}

		p.Excluded = len(p.Errors) > 0
		previews = append(previews, p)
	}

	return previews
}

// ValidRows returns the non-excluded previews in original row order.
func ValidRows(previews []RowPreview) []RowPreview {
	var out []RowPreview
	for _, p := range previews {
		if !p.Excluded {
			out = append(out, p)
		}
	}
	return out
}
