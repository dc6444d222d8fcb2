// Package templates renders full campaign templates with the Liquid
// template language for the builder preview. This is a separate surface
// from variable token resolution: Liquid supports filters and logic, while
// token resolution guarantees byte-for-byte passthrough of unknown tags.
package templates

import (
	"crypto/md5"
	"fmt"
	"html"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// RenderMode determines how missing variables are handled
type RenderMode int

const (
	// RenderModeLax renders missing vars as empty strings (live preview)
	RenderModeLax RenderMode = iota
	// RenderModeStrict reports missing vars as warnings (validation)
	RenderModeStrict
)

// ValidationWarning describes a problem found while rendering a template
type ValidationWarning struct {
	Variable string `json:"variable"`
	Message  string `json:"message"`
}

// RenderResult contains the rendered output and any warnings
type RenderResult struct {
	Output   string              `json:"output"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
	Success  bool                `json:"success"`
}

// Engine renders Liquid templates with parse caching
type Engine struct {
	engine *liquid.Engine
	cache  sync.Map // md5(template) -> *liquid.Template
}

// NewEngine creates a template engine with the outreach filter set
func NewEngine() *Engine {
	e := &Engine{engine: liquid.NewEngine()}
	e.registerFilters()
	return e
}

func (e *Engine) registerFilters() {
	// Default value: {{ first_name | default: "there" }}
	e.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Capitalize first letter: {{ name | capitalize }}
	e.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// Truncate with ellipsis: {{ icebreaker | truncate: 80 }}
	e.engine.RegisterFilter("truncate", func(s string, length int) string {
		if len(s) <= length {
			return s
		}
		if length <= 3 {
			return s[:length]
		}
		return s[:length-3] + "..."
	})

	// URL encode: {{ email | urlencode }}
	e.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	// HTML escape: {{ user_input | escape }}
	e.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

// Render renders a template with the given context
func (e *Engine) Render(template string, context map[string]interface{}, mode RenderMode) RenderResult {
	tmpl, err := e.parse(template)
	if err != nil {
		log.Printf("Engine: Parse error: %v", err)
		return RenderResult{
			Warnings: []ValidationWarning{{Message: fmt.Sprintf("template parse error: %v", err)}},
		}
	}

	var warnings []ValidationWarning
	if mode == RenderModeStrict {
		for _, v := range extractVariables(template) {
			if _, ok := context[v]; !ok {
				warnings = append(warnings, ValidationWarning{
					Variable: v,
					Message:  fmt.Sprintf("variable %q has no value", v),
				})
			}
		}
	}

	output, err := tmpl.RenderString(context)
	if err != nil {
		log.Printf("Engine: Render error: %v", err)
		return RenderResult{
			Warnings: append(warnings, ValidationWarning{Message: fmt.Sprintf("render error: %v", err)}),
		}
	}

	return RenderResult{Output: output, Warnings: warnings, Success: true}
}

func (e *Engine) parse(template string) (*liquid.Template, error) {
	key := fmt.Sprintf("%x", md5.Sum([]byte(template)))
	if cached, ok := e.cache.Load(key); ok {
		return cached.(*liquid.Template), nil
	}

	tmpl, err := e.engine.ParseString(template)
	if err != nil {
		return nil, err
	}
	e.cache.Store(key, tmpl)
	return tmpl, nil
}

var variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)`)

// extractVariables lists the top-level variable names referenced by a template
func extractVariables(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range variablePattern.FindAllStringSubmatch(template, -1) {
		name := strings.SplitN(match[1], ".", 2)[0]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
