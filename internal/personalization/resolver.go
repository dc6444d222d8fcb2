package personalization

import "strings"

// Content is a subject/body pair flowing through resolution.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LeadData carries the per-lead values used for substitution. Keys are
// variable names; empty values are treated as absent.
type LeadData map[string]string

// Resolve substitutes registered variable tokens in the content with values
// from the lead. Tokens whose variable is unknown, or whose lead value is
// empty, pass through untouched so downstream platforms can resolve them
// with their own merge engines. Resolution is pure: the inputs are never
// mutated and the same inputs always produce the same output.
//
// Exact token replacement means a triple-braced placeholder like
// {{{first_name}}} resolves its inner token and keeps the outer braces,
// yielding "{Ana}". Several destination platforms strip the stray braces
// themselves, so the behavior is kept.
func Resolve(content Content, lead LeadData) Content {
	return Content{
		Subject: resolveText(content.Subject, lead),
		Body:    resolveText(content.Body, lead),
	}
}

// ResolveText substitutes tokens in a single piece of text.
func ResolveText(text string, lead LeadData) string {
	return resolveText(text, lead)
}

func resolveText(text string, lead LeadData) string {
	if text == "" || len(lead) == 0 {
		return text
	}
	for _, v := range variables {
		value, ok := lead[v.Name]
		if !ok || value == "" {
			continue
		}
		text = strings.ReplaceAll(text, v.Token, value)
	}
	return text
}

// UnresolvedTokens reports which registered variable tokens remain in the
// text after resolution. Used by preview to warn about missing lead fields.
func UnresolvedTokens(text string) []string {
	var missing []string
	for _, v := range variables {
		if strings.Contains(text, v.Token) {
			missing = append(missing, v.Name)
		}
	}
	return missing
}
