// Package mapping implements the CSV column to participant field mapping
// engine: header normalization, alias scoring, composite first/last name
// detection, and greedy auto-mapping of spreadsheet headers onto the fixed
// set of system fields.
package mapping

// Field names for the closed set of participant attributes an import can
// populate. Name and Email are the only required fields.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldCompany  = "company"
	FieldRole     = "role"
	FieldIndustry = "industry"
	FieldTeamSize = "teamSize"
	FieldNote     = "note"
)

// Field describes one system field a CSV column can be mapped to.
type Field struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Aliases  []string `json:"-"`
}

// Fields is the closed, ordered set of system fields. Auto-mapping assigns
// columns in this order; name is handled first so composite detection can
// reserve its columns before the greedy pass runs.
var Fields = []Field{
	{
		Name:     FieldName,
		Label:    "Name",
		Required: true,
		Aliases: []string{
			"name", "full name", "fullname", "participant name",
			"contact name", "employee name", "person",
		},
	},
	{
		Name:     FieldEmail,
		Label:    "Email Address",
		Required: true,
		Aliases: []string{
			"email", "email address", "emailaddress", "e mail",
			"mail", "work email", "participant email", "contact email",
		},
	},
	{
		Name:     FieldCompany,
		Label:    "Company",
		Required: false,
		Aliases: []string{
			"company", "company name", "companyname", "organization",
			"organisation", "org", "employer", "business",
		},
	},
	{
		Name:     FieldRole,
		Label:    "Role",
		Required: false,
		Aliases: []string{
			"role", "job title", "jobtitle", "title", "position",
			"job role", "function", "job",
		},
	},
	{
		Name:     FieldIndustry,
		Label:    "Industry",
		Required: false,
		Aliases: []string{
			"industry", "sector", "vertical",
		},
	},
	{
		Name:     FieldTeamSize,
		Label:    "Team Size",
		Required: false,
		Aliases: []string{
			"team size", "teamsize", "company size", "companysize",
			"employees", "headcount", "number of employees",
		},
	},
	{
		Name:     FieldNote,
		Label:    "Note",
		Required: false,
		Aliases: []string{
			"note", "notes", "comment", "comments", "remarks",
			"description",
		},
	},
}

// Aliases used only by composite name detection. A header matching one of
// these is treated as a first-name or last-name column respectively.
var (
	firstNameAliases = []string{
		"first name", "firstname", "fname", "given name", "givenname", "first",
	}
	lastNameAliases = []string{
		"last name", "lastname", "lname", "surname", "family name",
		"familyname", "last",
	}
)

// FieldByName returns the field definition for a system field name.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields returns the names of all required system fields.
func RequiredFields() []string {
	var out []string
	for _, f := range Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
