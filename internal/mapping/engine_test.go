package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Email", "email"},
		{"  Email Address  ", "email address"},
		{"E-Mail", "email"},
		{"First_Name", "firstname"},
		{"Team Size (FTE)", "team size fte"},
		{"名前", ""},
		{"", ""},
		{"Company #1", "company 1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Email Address", "  First-Name  ", "TEAM SIZE", "a@b", "名前 name"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize should be idempotent for %q", in)
	}
}

func TestScore_Tiers(t *testing.T) {
	aliases := []string{"email", "email address"}

	tests := []struct {
		name   string
		header string
		want   float64
	}{
		{"exact", "Email", ScoreExact},
		{"exact after collapse", "Email   Address", ScoreExact},
		{"exact ignoring punctuation", "E-mail", ScoreExact},
		{"contains alias", "Primary Email", ScoreContains},
		{"alias contains header", "em", ScoreContains},
		{"no match", "Birthday", ScoreNone},
		{"empty header", "", ScoreNone},
		{"punctuation only", "###", ScoreNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.header, aliases))
		})
	}
}

func TestScore_OnlyKnownTiers(t *testing.T) {
	headers := []string{"Email", "email addr", "zzz", "Company Name", "e", "", "Note s"}
	valid := map[float64]bool{ScoreNone: true, ScorePrefix: true, ScoreContains: true, ScoreExact: true}
	for _, f := range Fields {
		for _, h := range headers {
			s := Score(h, f.Aliases)
			assert.True(t, valid[s], "Score(%q, %s aliases) = %v, not a known tier", h, f.Name, s)
		}
	}
}

func TestDetectName_Composite(t *testing.T) {
	det := DetectName([]string{"First Name", "Last Name", "Email"})
	require.Equal(t, NameComposite, det.Type)
	assert.Equal(t, []string{"First Name", "Last Name"}, det.Columns)
}

func TestDetectName_CompositeAliases(t *testing.T) {
	det := DetectName([]string{"fname", "surname", "email"})
	require.Equal(t, NameComposite, det.Type)
	assert.Equal(t, []string{"fname", "surname"}, det.Columns)
}

func TestDetectName_Single(t *testing.T) {
	det := DetectName([]string{"Full Name", "Email Address"})
	require.Equal(t, NameSingle, det.Type)
	assert.Equal(t, []string{"Full Name"}, det.Columns)
}

func TestDetectName_None(t *testing.T) {
	det := DetectName([]string{"Email", "Company"})
	assert.Equal(t, NameNone, det.Type)
	assert.Empty(t, det.Columns)
}

func TestDetectName_FirstOnlyFallsBackToSingle(t *testing.T) {
	// A lone first-name column is not a composite pair; it still contains
	// "name" so it serves as the single name column.
	det := DetectName([]string{"First Name", "Email"})
	require.Equal(t, NameSingle, det.Type)
	assert.Equal(t, []string{"First Name"}, det.Columns)
}

func TestDetectName_Deterministic(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Email", "Org"}
	first := DetectName(headers)
	second := DetectName(headers)
	assert.Equal(t, first, second)
}

func TestAutoMap_EndToEnd(t *testing.T) {
	headers := []string{"Full Name", "Email Address", "Org"}
	mappings, det := AutoMap(headers)

	require.Len(t, mappings, len(Fields))
	assert.Equal(t, NameSingle, det.Type)

	byField := make(map[string]FieldMapping)
	for _, m := range mappings {
		byField[m.Field] = m
	}

	assert.Equal(t, "Full Name", byField[FieldName].Column)
	assert.Equal(t, ScoreExact, byField[FieldName].Confidence)
	assert.Equal(t, "Email Address", byField[FieldEmail].Column)
	assert.Equal(t, ScoreExact, byField[FieldEmail].Confidence)
	assert.Equal(t, "Org", byField[FieldCompany].Column)
	assert.GreaterOrEqual(t, byField[FieldCompany].Confidence, ScoreContains)
	assert.Empty(t, byField[FieldRole].Column)
	assert.Equal(t, ScoreNone, byField[FieldRole].Confidence)
}

func TestAutoMap_Composite(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Email", "Company"}
	mappings, det := AutoMap(headers)

	require.Equal(t, NameComposite, det.Type)
	assert.Equal(t, "First Name + Last Name", mappings[0].Column)
	assert.Equal(t, compositeConfidence, mappings[0].Confidence)
}

func TestAutoMap_NoDoubleAssignment(t *testing.T) {
	headerSets := [][]string{
		{"Full Name", "Email", "Company", "Role", "Industry", "Team Size", "Notes"},
		{"First Name", "Last Name", "Email Address", "Org", "Job Title"},
		{"name", "name 2", "email", "company", "company name"},
	}

	for _, headers := range headerSets {
		mappings, _ := AutoMap(headers)
		seen := make(map[string]string)
		for _, m := range mappings {
			if m.Column == "" {
				continue
			}
			cols := []string{m.Column}
			if first, last, ok := SplitComposite(m.Column); ok {
				cols = []string{first, last}
			}
			for _, c := range cols {
				if prev, dup := seen[c]; dup {
					t.Errorf("header %q assigned to both %s and %s (headers %v)", c, prev, m.Field, headers)
				}
				seen[c] = m.Field
			}
		}
	}
}

func TestAutoMap_UnmappableFieldsStayEmpty(t *testing.T) {
	mappings, det := AutoMap([]string{"Foo", "Bar"})
	assert.Equal(t, NameNone, det.Type)
	for _, m := range mappings {
		assert.Empty(t, m.Column, "field %s should be unmapped", m.Field)
		assert.Equal(t, ScoreNone, m.Confidence)
	}
}

func TestSetColumn(t *testing.T) {
	mappings, _ := AutoMap([]string{"Email", "Widget"})

	require.True(t, SetColumn(mappings, FieldName, "Widget"))
	byField := make(map[string]FieldMapping)
	for _, m := range mappings {
		byField[m.Field] = m
	}
	assert.Equal(t, "Widget", byField[FieldName].Column)
	assert.Equal(t, ScoreExact, byField[FieldName].Confidence)

	require.True(t, SetColumn(mappings, FieldEmail, ""))
	for _, m := range mappings {
		if m.Field == FieldEmail {
			assert.Empty(t, m.Column)
			assert.Equal(t, ScoreNone, m.Confidence)
		}
	}

	assert.False(t, SetColumn(mappings, "bogus", "Widget"))

	require.True(t, ClearColumn(mappings, FieldName))
	for _, m := range mappings {
		if m.Field == FieldName {
			assert.Empty(t, m.Column)
		}
	}
	assert.False(t, ClearColumn(mappings, "bogus"))
}

func TestRequiredMapped(t *testing.T) {
	mappings, _ := AutoMap([]string{"Full Name", "Email"})
	assert.True(t, RequiredMapped(mappings))

	SetColumn(mappings, FieldEmail, "")
	assert.False(t, RequiredMapped(mappings))
}

func TestUnmappedColumns(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Email", "Favorite Color"}
	mappings, _ := AutoMap(headers)

	unmapped := UnmappedColumns(headers, mappings)
	assert.Equal(t, []string{"Favorite Color"}, unmapped)
}

func TestUnmappedColumns_AllUnreferenced(t *testing.T) {
	headers := []string{"A", "B", "C"}
	mappings := []FieldMapping{
		{Field: FieldName, Column: "A", Required: true, Confidence: 1.0},
		{Field: FieldEmail, Required: true},
	}
	assert.Equal(t, []string{"B", "C"}, UnmappedColumns(headers, mappings))
}

func TestSplitComposite(t *testing.T) {
	first, last, ok := SplitComposite("First Name + Last Name")
	require.True(t, ok)
	assert.Equal(t, "First Name", first)
	assert.Equal(t, "Last Name", last)

	_, _, ok = SplitComposite("Email")
	assert.False(t, ok)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{FieldName, FieldEmail}, RequiredFields())
}
