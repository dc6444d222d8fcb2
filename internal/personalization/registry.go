// Package personalization provides the email variable catalog and the
// token substitution engine used by campaign preview and export.
package personalization

// Variable describes a personalization variable available to campaign content
type Variable struct {
	Name      string `json:"name"`       // canonical identifier, e.g. "first_name"
	Label     string `json:"label"`      // human-readable label for the builder UI
	LeadField string `json:"lead_field"` // lead record field the value comes from
	Token     string `json:"token"`      // internal placeholder form, e.g. "{{first_name}}"
	Sample    string `json:"sample"`     // sample value for previews
}

// Platform identifies a destination format for exported content
type Platform string

const (
	// PlatformClipboard is the internal format used by clipboard copy and preview
	PlatformClipboard Platform = "clipboard"
	// PlatformSnovio is the Snov.io camelCase merge tag format
	PlatformSnovio Platform = "snovio"
	// PlatformCSV is the bare column-name format for CSV export
	PlatformCSV Platform = "csv"
)

var variables = []Variable{
	{Name: "first_name", Label: "First Name", LeadField: "first_name", Token: "{{first_name}}", Sample: "Ana"},
	{Name: "company_name", Label: "Company Name", LeadField: "company_name", Token: "{{company_name}}", Sample: "Globex"},
	{Name: "title", Label: "Job Title", LeadField: "title", Token: "{{title}}", Sample: "VP of Sales"},
	{Name: "icebreaker", Label: "Icebreaker", LeadField: "icebreaker", Token: "{{icebreaker}}", Sample: "Loved your recent post on cold outreach"},
}

// platformTags maps each platform to the tag emitted per variable name.
// Every platform covers every registered variable.
var platformTags = map[Platform]map[string]string{
	PlatformClipboard: {
		"first_name":   "{{first_name}}",
		"company_name": "{{company_name}}",
		"title":        "{{title}}",
		"icebreaker":   "{{icebreaker}}",
	},
	PlatformSnovio: {
		"first_name":   "{{firstName}}",
		"company_name": "{{companyName}}",
		"title":        "{{position}}",
		"icebreaker":   "{{icebreaker}}",
	},
	PlatformCSV: {
		"first_name":   "first_name",
		"company_name": "company_name",
		"title":        "title",
		"icebreaker":   "icebreaker",
	},
}

// ListVariables returns the registered variables. The returned slice is a
// copy; callers may reorder or mutate it freely.
func ListVariables() []Variable {
	out := make([]Variable, len(variables))
	copy(out, variables)
	return out
}

// GetVariable looks up a variable by its canonical name.
func GetVariable(name string) (Variable, bool) {
	for _, v := range variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// PlatformMapping returns the variable→tag map for a platform. The returned
// map is a copy.
func PlatformMapping(platform Platform) (map[string]string, bool) {
	tags, ok := platformTags[platform]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out, true
}

// MapToken returns the platform-specific tag for a single variable.
func MapToken(variable string, platform Platform) (string, bool) {
	tags, ok := platformTags[platform]
	if !ok {
		return "", false
	}
	tag, ok := tags[variable]
	return tag, ok
}

// Platforms returns the supported destination platforms.
func Platforms() []Platform {
	return []Platform{PlatformClipboard, PlatformSnovio, PlatformCSV}
}
