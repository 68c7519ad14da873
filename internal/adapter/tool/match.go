package tool

import (
	"regexp"
	"sort"
	"strings"

	"portal-agent/internal/domain/entity"
)

// MaxMatches caps the candidate list returned to the planner; the
// pre-cap count still travels back as Observation.Total.
const MaxMatches = 6

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Canonicalize lowercases and folds every non-alphanumeric run into a
// single space. An empty canonical query matches nothing.
func Canonicalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

func tokens(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(Canonicalize(s)) {
		set[t] = true
	}
	return set
}

func overlap(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	n := 0
	for t := range ta {
		if tb[t] {
			n++
		}
	}
	return n
}

// Search scores snapshot elements against a free-text query and returns
// all candidates ranked by (token overlap desc, selector length asc) —
// shorter, more specific selectors win ties.
func Search(query string, page entity.Snapshot) []entity.Candidate {
	ql := Canonicalize(query)
	if ql == "" {
		return nil
	}

	matches := func(text, selector string) bool {
		tl := Canonicalize(text)
		sl := Canonicalize(selector)
		if strings.Contains(tl, ql) || strings.Contains(sl, ql) {
			return true
		}
		return overlap(ql, tl) > 0
	}

	var out []entity.Candidate
	for _, b := range page.Buttons {
		if matches(b.Text, b.Selector) {
			out = append(out, entity.Candidate{Kind: "button", Text: b.Text, Selector: b.Selector})
		}
	}
	for _, a := range page.Links {
		if matches(a.Text, a.Selector) {
			out = append(out, entity.Candidate{Kind: "link", Text: a.Text, Selector: a.Selector, Href: a.Href})
		}
	}
	for _, in := range page.Inputs {
		hay := strings.ToLower(in.Name + " " + in.Placeholder + " " + in.Selector)
		if strings.Contains(hay, ql) {
			out = append(out, entity.Candidate{Kind: "input", Text: in.Name, Selector: in.Selector})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := overlap(ql, out[i].Text), overlap(ql, out[j].Text)
		if oi != oj {
			return oi > oj
		}
		return len(out[i].Selector) < len(out[j].Selector)
	})
	return out
}
