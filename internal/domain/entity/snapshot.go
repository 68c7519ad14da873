package entity

import (
	"encoding/json"
	"strings"
)

// Snapshot is a point-in-time structured capture of a web page, produced
// by an external observer (browser extension or driver) and consumed
// read-only by the agent. A new snapshot invalidates any readiness state
// computed from an older one.
type Snapshot struct {
	URL               string     `json:"url"`
	Title             string     `json:"title"`
	Texts             []TextNode `json:"texts,omitempty"`
	Links             []Link     `json:"links,omitempty"`
	Buttons           []Button   `json:"buttons,omitempty"`
	Inputs            []Input    `json:"inputs,omitempty"`
	Headings          []TextNode `json:"headings,omitempty"`
	Images            []Image    `json:"images,omitempty"`
	ClickablesPreview []TextNode `json:"clickables_preview,omitempty"`
	RawHTML           string     `json:"raw_html,omitempty"`
}

type TextNode struct {
	Text string `json:"text"`
}

type Link struct {
	Text     string `json:"text"`
	Href     string `json:"href"`
	Selector string `json:"selector"`
}

type Button struct {
	Text     string `json:"text"`
	Selector string `json:"selector"`
}

type Input struct {
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Selector    string `json:"selector"`
}

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// ParseSnapshot accepts the page_state a caller sends: either a JSON
// object or a JSON-encoded string of one. Unparseable input yields an
// empty snapshot rather than an error; the agent degrades gracefully.
func ParseSnapshot(raw json.RawMessage) Snapshot {
	var snap Snapshot
	if len(raw) == 0 {
		return snap
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "\"") {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return snap
		}
		trimmed = inner
	}
	_ = json.Unmarshal([]byte(trimmed), &snap)
	return snap
}

// TextLines returns the whitespace-normalized, non-empty text lines of
// the snapshot in document order. Extractors operate on this flattened
// view.
func (s Snapshot) TextLines() []string {
	lines := make([]string, 0, len(s.Texts))
	for _, t := range s.Texts {
		if n := NormText(t.Text); n != "" {
			lines = append(lines, n)
		}
	}
	return lines
}

// NormText collapses internal whitespace and trims.
func NormText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
