package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	csvData := `Full Name,Email Address,Org
Jo Smith,jo@acme.com,Acme
Sam Doe,sam@acme.com,Initech`

	parsed, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, []string{"Full Name", "Email Address", "Org"}, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "Jo Smith", parsed.Rows[0]["Full Name"])
	assert.Equal(t, "sam@acme.com", parsed.Rows[1]["Email Address"])
}

func TestParseCSV_EmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseCSV_HeadersOnly(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Name,Email\n"))
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestParseCSV_BlankHeaderRow(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("\nJo,jo@acme.com"))
	assert.ErrorIs(t, err, ErrNoHeaders)
}

func TestParseCSV_ShortRowPadded(t *testing.T) {
	parsed, err := ParseCSV(strings.NewReader("Name,Email,Company\nJo,jo@acme.com"))
	require.NoError(t, err)
	assert.Equal(t, "", parsed.Rows[0]["Company"])
}

func TestParseCSV_ExtraCellsDropped(t *testing.T) {
	parsed, err := ParseCSV(strings.NewReader("Name,Email\nJo,jo@acme.com,stray"))
	require.NoError(t, err)
	assert.Len(t, parsed.Rows[0], 2)
}

func TestParseCSV_QuotedFields(t *testing.T) {
	csvData := `"Name","Email","Note"
"Doe, Jo","jo@acme.com","likes ""quotes"""`

	parsed, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, "Doe, Jo", parsed.Rows[0]["Name"])
	assert.Equal(t, `likes "quotes"`, parsed.Rows[0]["Note"])
}
