package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/participant-importer/internal/mapping"
)

func parseAndMap(t *testing.T, csvData string) (*ParsedCSV, []mapping.FieldMapping) {
	t.Helper()
	parsed, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	mappings, _ := mapping.AutoMap(parsed.Headers)
	return parsed, mappings
}

func TestExtractValue_Composite(t *testing.T) {
	m := mapping.FieldMapping{
		Field:  mapping.FieldName,
		Column: mapping.CompositeColumn("First Name", "Last Name"),
	}

	tests := []struct {
		name  string
		row   map[string]string
		want  string
	}{
		{"both parts", map[string]string{"First Name": "Ada", "Last Name": "Lovelace"}, "Ada Lovelace"},
		{"first empty", map[string]string{"First Name": "", "Last Name": "Lovelace"}, "Lovelace"},
		{"both empty", map[string]string{"First Name": "", "Last Name": ""}, ""},
		{"whitespace trimmed", map[string]string{"First Name": "  Ada ", "Last Name": " Lovelace "}, "Ada Lovelace"},
		{"missing keys", map[string]string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractValue(tt.row, m))
		})
	}
}

func TestExtractValue_SingleAndUnmapped(t *testing.T) {
	row := map[string]string{"Email": "  jo@acme.com "}

	single := mapping.FieldMapping{Field: mapping.FieldEmail, Column: "Email"}
	assert.Equal(t, "jo@acme.com", ExtractValue(row, single))

	unmapped := mapping.FieldMapping{Field: mapping.FieldCompany}
	assert.Equal(t, "", ExtractValue(row, unmapped))

	missing := mapping.FieldMapping{Field: mapping.FieldRole, Column: "Role"}
	assert.Equal(t, "", ExtractValue(row, missing))
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@b.co", true},
		{"user.name+tag@sub.example.com", true},
		{"a@b", false},
		{"a b@c.org", false},
		{"a@b c.org", false},
		{"@example.com", false},
		{"user@", false},
		{"plain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidEmail(tt.email))
		})
	}
}

func TestBuildPreviews_CleanRow(t *testing.T) {
	parsed, mappings := parseAndMap(t, `Full Name,Email Address,Org
Jo Smith,jo@acme.com,Acme`)

	previews := BuildPreviews(parsed, mappings)
	require.Len(t, previews, 1)

	p := previews[0]
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, "Jo Smith", p.Values[mapping.FieldName])
	assert.Equal(t, "jo@acme.com", p.Values[mapping.FieldEmail])
	assert.Equal(t, "Acme", p.Values[mapping.FieldCompany])
	assert.Empty(t, p.Errors)
	assert.Empty(t, p.Warnings)
	assert.False(t, p.Excluded)
}

func TestBuildPreviews_ErrorClassification(t *testing.T) {
	parsed, mappings := parseAndMap(t, `Full Name,Email Address
,jo@acme.com
Jo Smith,
Sam Doe,not-an-email`)

	previews := BuildPreviews(parsed, mappings)
	require.Len(t, previews, 3)

	assert.Equal(t, []string{MsgMissingName}, previews[0].Errors)
	assert.Equal(t, []string{MsgMissingEmail}, previews[1].Errors)
	assert.Equal(t, []string{MsgInvalidEmail}, previews[2].Errors)
	for _, p := range previews {
		assert.True(t, p.Excluded, "row %d with errors should start excluded", p.Index)
	}
}

func TestBuildPreviews_DuplicateEmailCaseInsensitive(t *testing.T) {
	parsed, mappings := parseAndMap(t, `Full Name,Email Address
A One,x@y.com
B Two,X@Y.com
C Three,x@y.com`)

	previews := BuildPreviews(parsed, mappings)
	require.Len(t, previews, 3)

	assert.Empty(t, previews[0].Warnings, "first occurrence never warns")
	assert.Equal(t, []string{MsgDuplicateEmail}, previews[1].Warnings)
	assert.Equal(t, []string{MsgDuplicateEmail}, previews[2].Warnings)

	// Warnings never exclude.
	for _, p := range previews {
		assert.False(t, p.Excluded)
		assert.Empty(t, p.Errors)
	}
}

func TestBuildPreviews_InvalidEmailStillTracked(t *testing.T) {
	// A malformed email is recorded in the seen set, so a later valid
	// duplicate of it still warns.
	parsed, mappings := parseAndMap(t, `Full Name,Email Address
A One,broken@@x
B Two,broken@@x`)

	previews := BuildPreviews(parsed, mappings)
	assert.Equal(t, []string{MsgInvalidEmail}, previews[0].Errors)
	assert.Equal(t, []string{MsgDuplicateEmail}, previews[1].Warnings)
}

func TestBuildPreviews_CompositeName(t *testing.T) {
	parsed, mappings := parseAndMap(t, `First Name,Last Name,Email
Ada,Lovelace,ada@analytical.uk
,Lovelace,byron@analytical.uk`)

	previews := BuildPreviews(parsed, mappings)
	assert.Equal(t, "Ada Lovelace", previews[0].Values[mapping.FieldName])
	assert.Equal(t, "Lovelace", previews[1].Values[mapping.FieldName])
	assert.Empty(t, previews[1].Errors)
}

func TestRowPreview_ManualToggleIndependent(t *testing.T) {
	parsed, mappings := parseAndMap(t, `Full Name,Email Address
Jo Smith,
Sam Doe,sam@acme.com`)

	previews := BuildPreviews(parsed, mappings)
	require.True(t, previews[0].Excluded)
	require.False(t, previews[1].Excluded)

	// Force-include the broken row, force-exclude the valid one: the
	// validation outcome must not move.
	previews[0].Excluded = false
	previews[1].Excluded = true

	assert.Equal(t, []string{MsgMissingEmail}, previews[0].Errors)
	assert.Empty(t, previews[1].Errors)
}

func TestValidRows(t *testing.T) {
	previews := []RowPreview{
		{Index: 0, Excluded: false},
		{Index: 1, Excluded: true},
		{Index: 2, Excluded: false},
	}
	valid := ValidRows(previews)
	require.Len(t, valid, 2)
	assert.Equal(t, 0, valid[0].Index)
	assert.Equal(t, 2, valid[1].Index)
}
