package normalizer

import (
	"strings"

	"golang.org/x/net/html"

	"portal-agent/internal/domain/entity"
)

// MaxVocab caps the page vocabulary handed to snapping and to the LLM
// fallback prompt.
const MaxVocab = 80

// BuildVocab collects the visible UI words of a page: clickable
// previews, button and link labels, input names and placeholders, plus
// anchor/button text and aria-label/placeholder/alt attributes mined
// from the raw HTML when present. De-duplicated case-insensitively,
// original casing preserved, document order kept, capped at max.
func BuildVocab(page entity.Snapshot, max int) []string {
	if max <= 0 {
		max = MaxVocab
	}
	seen := map[string]bool{}
	var out []string

	add := func(s string) {
		t := entity.NormText(s)
		if t == "" {
			return
		}
		k := strings.ToLower(t)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, t)
	}

	for _, c := range page.ClickablesPreview {
		add(c.Text)
	}
	for _, b := range page.Buttons {
		add(b.Text)
	}
	for _, a := range page.Links {
		add(a.Text)
	}
	for _, in := range page.Inputs {
		if in.Name != "" {
			add(in.Name)
		} else {
			add(in.Placeholder)
		}
	}

	if page.RawHTML != "" {
		for _, label := range labelsFromHTML(page.RawHTML) {
			add(label)
		}
	}

	if len(out) > max {
		out = out[:max]
	}
	return out
}

// labelsFromHTML walks the parsed document and pulls anchor/button text
// and short aria-label/placeholder/alt attribute values.
func labelsFromHTML(raw string) []string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil
	}

	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "button":
				out = append(out, nodeText(n))
			}
			for _, attr := range n.Attr {
				switch attr.Key {
				case "aria-label", "placeholder", "alt":
					if l := len(attr.Val); l >= 2 && l <= 80 {
						out = append(out, attr.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
