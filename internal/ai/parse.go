package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ExtractJSON pulls the outermost {...} pair out of free-form model
// output. Models wrap JSON in prose and code fences; we only trust the
// widest brace span.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.*?)\*`)
	uBoldRe   = regexp.MustCompile(`__(.*?)__`)
	uItalicRe = regexp.MustCompile(`_(.*?)_`)
	codeRe    = regexp.MustCompile("`(.*?)`")
	headingRe = regexp.MustCompile(`#{1,6}\s*`)
	listRe    = regexp.MustCompile(`(?m)^\s*[-*+]\s*`)
	blanksRe  = regexp.MustCompile(`\n\s*\n`)
)

// StripMarkdown removes emphasis, heading, and list markers from model
// output before it is shown or stored.
func StripMarkdown(s string) string {
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = uBoldRe.ReplaceAllString(s, "$1")
	s = uItalicRe.ReplaceAllString(s, "$1")
	s = codeRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = listRe.ReplaceAllString(s, "")
	s = blanksRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// decodeStripped unmarshals into dst after extracting the embedded JSON
// payload, then strips markdown from every string field via a round trip
// through a generic map.
func decodeStripped(text string, dst any) bool {
	raw, ok := ExtractJSON(text)
	if !ok {
		raw = text
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return false
	}
	cleanValue(generic)

	cleaned, err := json.Marshal(generic)
	if err != nil {
		return false
	}
	return json.Unmarshal(cleaned, dst) == nil
}

func cleanValue(v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if s, ok := item.(string); ok {
				val[k] = StripMarkdown(s)
			} else {
				cleanValue(item)
			}
		}
	case []any:
		for i, item := range val {
			if s, ok := item.(string); ok {
				val[i] = StripMarkdown(s)
			} else {
				cleanValue(item)
			}
		}
	}
}
