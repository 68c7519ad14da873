package reader

import (
	"fmt"
	"regexp"
	"strings"

	"portal-agent/internal/domain/entity"
)

var labDateRx = regexp.MustCompile(`\b(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\b`)

var labLabels = []string{"date:", "ordering facility:", "performing facility:"}

// Portal chrome that must never be mistaken for a test name.
var labIrrelevant = map[string]bool{
	"log out": true, "healthier sg": true, "health a-z": true, "live healthy": true,
	"mental wellbeing": true, "parent hub": true, "health programmes": true,
	"health services": true, "filters": true, "reset filters": true, "switch": true,
	"about": true, "about healthhub faq privacy policy terms of use contact us sitemap": true,
	"top": true, "/": true, "health e-services": true, "health e-services /": true,
	"lab reports": true, "note": true,
}

// LabExtractor parses lab report entries. Each entry hangs off a
// "Date:" label; the test name is the nearest preceding non-label line
// and the facilities come from labelled lines in a short window after.
type LabExtractor struct{}

func (LabExtractor) Workflow() entity.Workflow { return entity.WorkflowLabResults }

func (LabExtractor) Ready(cfg Config, snap entity.Snapshot) bool {
	return len(snap.Headings) >= cfg.MinHeadings && len(snap.Links) >= cfg.MinLinks
}

func (LabExtractor) Reason(count int) string {
	return fmt.Sprintf("Extracted %d lab item(s)", count)
}

func (e LabExtractor) Extract(snap entity.Snapshot) entity.Extraction {
	items := extractLabItems(snap.TextLines())
	return entity.Extraction{
		Items:   items,
		Count:   len(items),
		Summary: summarizeLab(items),
		TTS:     ttsLab(items, ttsLimit),
	}
}

func isLabLabel(s string) bool {
	t := lower(entity.NormText(s))
	for _, lbl := range labLabels {
		if t == lbl || strings.HasPrefix(t, lbl) {
			return true
		}
	}
	return false
}

func isLabIrrelevant(s string) bool {
	t := lower(entity.NormText(s))
	return t == "" || labIrrelevant[t] || len(t) < 3
}

// prevTitle walks backwards from the date label to the closest line
// that could be a test name.
func prevTitle(lines []string, i int) string {
	for j := i - 1; j >= 0; j-- {
		cand := lines[j]
		if cand != "" && !isLabLabel(cand) && !isLabIrrelevant(cand) && !strings.Contains(cand, ":") {
			return cand
		}
	}
	return ""
}

func extractLabItems(lines []string) []entity.LabTest {
	var items []entity.LabTest
	n := len(lines)
	for i := 0; i < n; {
		t := lines[i]
		tl := lower(t)

		var date string
		if strings.HasPrefix(tl, "date:") {
			date = grabAfterColon(t)
			if date == "" && i+1 < n {
				next := lines[i+1]
				if m := labDateRx.FindStringSubmatch(next); m != nil {
					date = m[1]
				} else {
					date = next
				}
			}
		} else if contains(tl, "date") && strings.Contains(t, ":") {
			if m := labDateRx.FindStringSubmatch(t); m != nil {
				date = m[1]
			}
		}
		if date == "" {
			i++
			continue
		}

		item := entity.LabTest{Date: date, TestName: prevTitle(lines, i)}
		end := i + 12
		if end > n {
			end = n
		}
		for j := i; j < end; j++ {
			line := lines[j]
			ll := lower(line)
			switch {
			case strings.HasPrefix(ll, "ordering facility:"):
				if v := facilityValue(lines, j); v != "" {
					item.OrderingFacility = v
				}
			case strings.HasPrefix(ll, "performing facility:"):
				if v := facilityValue(lines, j); v != "" {
					item.PerformingFacility = v
				}
			}
		}
		if item.TestName != "" || item.OrderingFacility != "" || item.PerformingFacility != "" {
			items = append(items, item)
		}
		i = end
	}
	return dedupLab(items)
}

func facilityValue(lines []string, j int) string {
	if v := grabAfterColon(lines[j]); v != "" {
		return v
	}
	if j+1 < len(lines) {
		return lines[j+1]
	}
	return ""
}

func dedupLab(items []entity.LabTest) []entity.LabTest {
	type key struct{ name, date, ordering, performing string }
	seen := map[key]bool{}
	uniq := make([]entity.LabTest, 0, len(items))
	for _, it := range items {
		k := key{it.TestName, it.Date, it.OrderingFacility, it.PerformingFacility}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, it)
	}
	return uniq
}

func summarizeLab(items []entity.LabTest) string {
	if len(items) == 0 {
		return "No lab items found."
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s — %s — %s — %s",
			orUnknown(it.TestName, "Unknown Test"),
			orUnknown(it.Date, "Unknown Date"),
			orUnknown(it.OrderingFacility, "Unknown Ordering Facility"),
			orUnknown(it.PerformingFacility, "Unknown Performing Facility")))
	}
	return strings.Join(parts, " | ")
}

func ttsLab(items []entity.LabTest, limit int) string {
	if len(items) == 0 {
		return "No lab items were found."
	}
	n := len(items)
	if n > limit {
		n = limit
	}
	parts := make([]string, 0, n+1)
	for _, it := range items[:n] {
		segs := []string{fmt.Sprintf("%s on %s",
			orUnknown(it.TestName, "Unknown test"),
			orUnknown(it.Date, "unknown date"))}
		if it.OrderingFacility != "" {
			segs = append(segs, "from "+it.OrderingFacility)
		}
		parts = append(parts, strings.Join(segs, ", "))
	}
	if more := len(items) - n; more > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", more))
	}
	return strings.Join(parts, "; ") + "."
}
