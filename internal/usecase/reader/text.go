package reader

import (
	"regexp"
	"strings"
	"unicode"
)

// Shared text heuristics for the snapshot extractors. Pages render
// cards as flat text runs, so all parsing works over normalized lines.

// ttsLimit caps how many items a spoken summary names before "and N more".
const ttsLimit = 3

var months = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"january": true, "february": true, "march": true, "april": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
}

var (
	timeRx = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):[0-5]\d\s*(AM|PM)?\b`)

	dateRxes = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4})\b`),
		regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
	}
)

func lower(s string) string { return strings.ToLower(s) }

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func hasMonth(s string) bool {
	for m := range months {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func firstDate(s string) string {
	for _, rx := range dateRxes {
		if m := rx.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

// isUpperText reports whether the string has cased letters and all of
// them are uppercase.
func isUpperText(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// isTitleCased reports whether every word starts with an uppercase
// letter, the rough shape of a section heading.
func isTitleCased(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func joinedText(lines []string) string {
	return strings.ToLower(strings.Join(lines, " "))
}

func grabAfterColon(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.Join(strings.Fields(s[i+1:]), " ")
	}
	return ""
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
