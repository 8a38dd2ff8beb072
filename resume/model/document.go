// Package model normalizes free-form resume content into the fixed sections
// used for export.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// MaxSuggestedBullets caps the AI bullets appended to an export.
const MaxSuggestedBullets = 6

// Document is the printable view of a resume.
type Document struct {
	Title            string
	FullName         string
	Headline         string
	ContactLine      string
	Summary          string
	Skills           []string
	Experience       []string
	Projects         []string
	Education        []string
	SuggestedBullets []string
}

// FromContent builds a Document from stored resume content and the latest
// analysis payload. fallbackName is used when content carries no name.
func FromContent(title string, content, analysis map[string]any, fallbackName string) Document {
	doc := Document{
		Title:       title,
		FullName:    pickFirst(content["full_name"], content["name"], fallbackName),
		Headline:    pickFirst(content["headline"], content["target_role"]),
		ContactLine: contactLine(content["contact"]),
		Summary:     stringifyBlock(content["summary"]),
		Skills:      asList(content["skills"]),
		Experience:  normalizeItems(content["experience"]),
		Projects:    normalizeItems(content["projects"]),
		Education:   normalizeItems(content["education"]),
	}
	bullets := asList(analysis["improved_bullets"])
	if len(bullets) > MaxSuggestedBullets {
		bullets = bullets[:MaxSuggestedBullets]
	}
	doc.SuggestedBullets = bullets
	return doc
}

func pickFirst(values ...any) string {
	for _, v := range values {
		if text := strings.TrimSpace(toString(v)); text != "" {
			return text
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func contactLine(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		return strings.Join(asList(t), " | ")
	case map[string]any:
		var parts []string
		for _, key := range []string{"email", "phone", "location", "linkedin", "github", "website"} {
			if text := strings.TrimSpace(toString(t[key])); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " | ")
	}
	return ""
}

func asList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if text := strings.TrimSpace(toString(item)); text != "" {
				out = append(out, text)
			}
		}
	case []string:
		for _, item := range t {
			if text := strings.TrimSpace(item); text != "" {
				out = append(out, text)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if text := strings.TrimSpace(part); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func stringifyBlock(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var lines []string
		for _, item := range t {
			if text := strings.TrimSpace(toString(item)); text != "" {
				lines = append(lines, toString(item))
			}
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var lines []string
		for _, k := range keys {
			if text := strings.TrimSpace(toString(t[k])); text != "" {
				lines = append(lines, k+": "+toString(t[k]))
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func normalizeItems(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				title := pickFirst(m["title"], m["role"], m["company"])
				details := pickFirst(m["description"], m["details"], m["impact"])
				var parts []string
				for _, p := range []string{title, details} {
					if p != "" {
						parts = append(parts, p)
					}
				}
				if merged := strings.Join(parts, " - "); merged != "" {
					out = append(out, merged)
				}
				continue
			}
			if text := strings.TrimSpace(toString(item)); text != "" {
				out = append(out, text)
			}
		}
	case string:
		for _, line := range strings.Split(t, "\n") {
			if text := strings.TrimSpace(strings.Trim(line, "- ")); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}
