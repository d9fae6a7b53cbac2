package mapping

import (
	"strings"
	"unicode"
)

// Score tiers returned by Score. Auto-mapping only assigns a column when its
// best score reaches ScorePrefix.
const (
	ScoreExact    = 1.0
	ScoreContains = 0.7
	ScorePrefix   = 0.5
	ScoreNone     = 0.0
)

// Confidence assigned to a composite first+last name mapping. Lower than an
// exact single-column match because the join is inferred, not observed.
const compositeConfidence = 0.9

// compositeSep joins the two constituent headers of a composite name column.
const compositeSep = " + "

// FieldMapping binds one system field to a CSV column. Column is empty when
// the field is unmapped, a single header name, or the composite form
// "<firstHeader> + <lastHeader>" for an inferred full name.
type FieldMapping struct {
	Field      string  `json:"field"`
	Column     string  `json:"column,omitempty"`
	Required   bool    `json:"required"`
	Confidence float64 `json:"confidence"`
}

// NameDetection reports how a participant name can be extracted from the
// header set: a single name column, a first/last column pair, or neither.
type NameDetection struct {
	Type    string   `json:"type"` // "single", "composite", or "none"
	Columns []string `json:"columns"`
}

const (
	NameSingle    = "single"
	NameComposite = "composite"
	NameNone      = "none"
)

// Normalize lowercases s, strips every rune that is not a lowercase letter,
// digit, or whitespace, and trims the result. Idempotent.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Score rates how well a raw header matches an alias list. It returns the
// first tier that qualifies: exact match (after optional whitespace
// collapsing), substring containment in either direction, shared prefix in
// either direction, or no match. Alias order breaks ties within a tier.
func Score(header string, aliases []string) float64 {
	h := Normalize(header)
	if h == "" {
		return ScoreNone
	}
	collapsed := collapseSpaces(h)
	for _, a := range aliases {
		if h == a || collapsed == a {
			return ScoreExact
		}
	}
	for _, a := range aliases {
		if strings.Contains(h, a) || strings.Contains(a, h) {
			return ScoreContains
		}
	}
	for _, a := range aliases {
		if strings.HasPrefix(h, a) || strings.HasPrefix(a, h) {
			return ScorePrefix
		}
	}
	return ScoreNone
}

// DetectName scans the headers for name columns. If distinct first-name and
// last-name columns are found the result is composite; otherwise the first
// header that scores at least ScoreContains against the name aliases yields
// a single-column result. Deterministic for a given header slice, so the
// detection run at auto-map time and the one run before preview building
// agree.
func DetectName(headers []string) NameDetection {
	first := firstMatching(headers, firstNameAliases)
	last := firstMatching(headers, lastNameAliases)
	if first != "" && last != "" && first != last {
		return NameDetection{Type: NameComposite, Columns: []string{first, last}}
	}

	nameField, _ := FieldByName(FieldName)
	for _, h := range headers {
		if Score(h, nameField.Aliases) >= ScoreContains {
			return NameDetection{Type: NameSingle, Columns: []string{h}}
		}
	}
	return NameDetection{Type: NameNone, Columns: []string{}}
}

// firstMatching returns the first header whose normalized form equals or
// contains one of the aliases.
func firstMatching(headers, aliases []string) string {
	for _, h := range headers {
		n := Normalize(h)
		if n == "" {
			continue
		}
		for _, a := range aliases {
			if n == a || strings.Contains(n, a) {
				return h
			}
		}
	}
	return ""
}

// AutoMap produces one FieldMapping per system field, in field order. The
// name field is assigned from the detection result when possible; every
// other field takes the highest-scoring unused header, provided the score
// reaches ScorePrefix. A header is consumed by at most one mapping, except
// that the composite name mapping consumes its two constituent headers.
func AutoMap(headers []string) ([]FieldMapping, NameDetection) {
	detection := DetectName(headers)
	used := make(map[string]bool)
	mappings := make([]FieldMapping, 0, len(Fields))

	for _, f := range Fields {
		m := FieldMapping{Field: f.Name, Required: f.Required}

		if f.Name == FieldName {
			switch detection.Type {
			case NameComposite:
				m.Column = detection.Columns[0] + compositeSep + detection.Columns[1]
				m.Confidence = compositeConfidence
				used[detection.Columns[0]] = true
				used[detection.Columns[1]] = true
				mappings = append(mappings, m)
				continue
			case NameSingle:
				m.Column = detection.Columns[0]
				m.Confidence = ScoreExact
				used[detection.Columns[0]] = true
				mappings = append(mappings, m)
				continue
			}
			// NameNone falls through to standard matching.
		}

		bestScore := ScoreNone
		bestHeader := ""
		for _, h := range headers {
			if used[h] {
				continue
			}
			if s := Score(h, f.Aliases); s > bestScore {
				bestScore = s
				bestHeader = h
			}
		}
		if bestScore >= ScorePrefix {
			m.Column = bestHeader
			m.Confidence = bestScore
			used[bestHeader] = true
		}
		mappings = append(mappings, m)
	}

	return mappings, detection
}

// SetColumn applies a manual override to the mapping for the given field.
// A non-empty column gets confidence 1.0, clearing resets it to 0. Manual
// edits may reuse a header already assigned elsewhere; only auto-mapping
// enforces one column per field. Returns false if the field is unknown.
func SetColumn(mappings []FieldMapping, field, column string) bool {
	for i := range mappings {
		if mappings[i].Field != field {
			continue
		}
		mappings[i].Column = column
		if column == "" {
			mappings[i].Confidence = ScoreNone
		} else {
			mappings[i].Confidence = ScoreExact
		}
		return true
	}
	return false
}

// ClearColumn removes the mapping for the given field. Returns false if the
// field is unknown.
func ClearColumn(mappings []FieldMapping, field string) bool {
	return SetColumn(mappings, field, "")
}

// RequiredMapped reports whether every required field has a column assigned.
func RequiredMapped(mappings []FieldMapping) bool {
	for _, m := range mappings {
		if m.Required && m.Column == "" {
			return false
		}
	}
	return true
}

// SplitComposite splits a composite "<first> + <last>" column value into its
// two headers. ok is false for plain single-column values.
func SplitComposite(column string) (first, last string, ok bool) {
	i := strings.Index(column, compositeSep)
	if i < 0 {
		return "", "", false
	}
	return column[:i], column[i+len(compositeSep):], true
}

// CompositeColumn builds the sentinel column value for a first/last pair.
func CompositeColumn(first, last string) string {
	return first + compositeSep + last
}

// UnmappedColumns returns, in header order, the headers not referenced by
// any mapping. A composite column counts as referencing both of its
// constituent headers.
func UnmappedColumns(headers []string, mappings []FieldMapping) []string {
	referenced := make(map[string]bool)
	for _, m := range mappings {
		if m.Column == "" {
			continue
		}
		if first, last, ok := SplitComposite(m.Column); ok {
			referenced[first] = true
			referenced[last] = true
			continue
		}
		referenced[m.Column] = true
	}

	var out []string
	for _, h := range headers {
		if !referenced[h] {
			out = append(out, h)
		}
	}
	return out
}
