package reader

import (
	"fmt"
	"strings"

	"portal-agent/internal/domain/entity"
)

var (
	doseHints     = []string{"dose", "booster", "primary", "1st", "2nd", "3rd", "4th", "first", "second", "third"}
	statusHints   = []string{"completed", "done", "administered", "overdue", "due", "pending", "scheduled", "declined"}
	facilityHints = []string{"clinic", "hospital", "polyclinic", "centre", "center", "facility", "site", "location"}
	batchHints    = []string{"batch", "lot", "batch no", "lot no", "batch number", "lot number"}
	vaccineHints  = []string{
		"mmr", "measles", "mumps", "rubella", "bcg", "hepatitis", "hep b", "hib", "pneumo", "pcv",
		"varicella", "hpv", "diphtheria", "tetanus", "pertussis", "dtap", "tdap", "polio", "ipv", "opv",
		"covid", "pfizer", "moderna", "sinovac", "influenza", "flu", "yellow fever", "meningococcal",
		"var", "mmrv", "rotavirus", "zoster", "shingles", "td", "dt",
	}
)

// ImmunisationExtractor parses immunisation records from signal lines:
// any line carrying a vaccine, dose, status, facility, or batch hint
// (or a date) opens a small window that fills one record. Section
// headers like "Completed Immunisations" set the status of records
// that carry none of their own.
type ImmunisationExtractor struct{}

func (ImmunisationExtractor) Workflow() entity.Workflow { return entity.WorkflowImmunisations }

func (ImmunisationExtractor) Ready(cfg Config, snap entity.Snapshot) bool {
	if len(snap.Texts) < cfg.MinTexts {
		return false
	}
	if !cfg.RequireMonth {
		return true
	}
	return hasMonth(joinedText(snap.TextLines()))
}

func (ImmunisationExtractor) Reason(count int) string {
	return fmt.Sprintf("Extracted %d immunisation record(s)", count)
}

func (e ImmunisationExtractor) Extract(snap entity.Snapshot) entity.Extraction {
	items := extractImmunisations(snap.TextLines())
	return entity.Extraction{
		Items:   items,
		Count:   len(items),
		Summary: summarizeImmunisations(items),
		TTS:     ttsImmunisations(items, ttsLimit),
	}
}

func anyHint(tl string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(tl, h) {
			return true
		}
	}
	return false
}

func isSignalLine(tl string) bool {
	return anyHint(tl, vaccineHints) ||
		anyHint(tl, doseHints) ||
		anyHint(tl, statusHints) ||
		anyHint(tl, facilityHints) ||
		anyHint(tl, batchHints) ||
		firstDate(tl) != ""
}

func extractImmunisations(lines []string) []entity.Immunisation {
	var items []entity.Immunisation
	n := len(lines)
	sectionStatus := ""

	for i := 0; i < n; {
		tl := lower(lines[i])

		if strings.Contains(tl, "completed immunisations") {
			sectionStatus = "Completed"
			i++
			continue
		}
		if strings.Contains(tl, "nationally recommended") {
			sectionStatus = "Recommended"
			i++
			continue
		}

		if isSignalLine(tl) {
			item := recordFromWindow(window(lines, i, 8))
			if item.Status == "" {
				item.Status = sectionStatus
			}
			if item.Vaccine != "" || item.Date != "" {
				items = append(items, item)
				i += 5
				continue
			}
		}
		i++
	}
	return dedupImmunisations(items)
}

// window returns lines[i-1 : i+span] clamped to bounds: one line of
// context before the signal line, span lines after.
func window(lines []string, i, span int) []string {
	a := i - 1
	if a < 0 {
		a = 0
	}
	b := i + span
	if b > len(lines) {
		b = len(lines)
	}
	return lines[a:b]
}

func recordFromWindow(win []string) entity.Immunisation {
	var item entity.Immunisation
	for _, t := range win {
		tl := lower(t)

		if item.Date == "" {
			item.Date = firstDate(t)
		}
		if item.Dose == "" {
			item.Dose = doseFromLine(t, tl)
		}
		if item.Status == "" {
			item.Status = statusFromLine(t, tl)
		}
		if item.Facility == "" && anyHint(tl, facilityHints) {
			item.Facility = t
		}
		if item.Batch == "" && anyHint(tl, batchHints) {
			item.Batch = t
		}
		if item.Vaccine == "" {
			if anyHint(tl, vaccineHints) {
				item.Vaccine = t
			} else if looksLikeVaccineName(t, tl) {
				item.Vaccine = t
			}
		}
	}
	return item
}

func doseFromLine(t, tl string) string {
	switch {
	case strings.Contains(tl, "booster"):
		return "Booster"
	case strings.Contains(tl, "1st"), strings.Contains(tl, "first"):
		return "1st dose"
	case strings.Contains(tl, "2nd"), strings.Contains(tl, "second"):
		return "2nd dose"
	case strings.Contains(tl, "3rd"), strings.Contains(tl, "third"):
		return "3rd dose"
	case strings.Contains(tl, "4th"), strings.Contains(tl, "fourth"):
		return "4th dose"
	case strings.Contains(tl, "dose"):
		return t
	}
	return ""
}

func statusFromLine(t, tl string) string {
	if !anyHint(tl, statusHints) {
		return ""
	}
	switch {
	case strings.Contains(tl, "completed"), strings.Contains(tl, "administered"), strings.Contains(tl, "done"):
		return "Completed"
	case strings.Contains(tl, "overdue"):
		return "Overdue"
	case strings.Contains(tl, "pending"), strings.Contains(tl, "scheduled"), strings.Contains(tl, "due"):
		return "Due/Pending"
	}
	return t
}

// looksLikeVaccineName accepts capitalized free text that is not a
// label or a clock time; unknown vaccines still get recorded.
func looksLikeVaccineName(t, tl string) bool {
	if len(t) <= 3 || strings.Contains(t, ":") {
		return false
	}
	if strings.HasSuffix(tl, "am") || strings.HasSuffix(tl, "pm") {
		return false
	}
	r := []rune(t)[0]
	return r >= 'A' && r <= 'Z'
}

func dedupImmunisations(items []entity.Immunisation) []entity.Immunisation {
	type key struct{ vaccine, dose, date string }
	seen := map[key]bool{}
	uniq := make([]entity.Immunisation, 0, len(items))
	for _, it := range items {
		k := key{it.Vaccine, it.Dose, it.Date}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, it)
	}
	return uniq
}

func summarizeImmunisations(items []entity.Immunisation) string {
	if len(items) == 0 {
		return "No immunisation records found."
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		s := fmt.Sprintf("%s — %s — %s — %s — %s",
			orUnknown(it.Vaccine, "Unknown Vaccine"),
			orUnknown(it.Dose, "?"),
			orUnknown(it.Date, "Unknown Date"),
			orUnknown(it.Status, "Unknown Status"),
			orUnknown(it.Facility, "Unknown Facility"))
		if it.Batch != "" {
			s += " — " + it.Batch
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " | ")
}

func ttsImmunisations(items []entity.Immunisation, limit int) string {
	if len(items) == 0 {
		return "No immunisation records were found."
	}
	n := len(items)
	if n > limit {
		n = limit
	}
	parts := make([]string, 0, n+1)
	for _, it := range items[:n] {
		segs := []string{orUnknown(it.Vaccine, "Unknown vaccine")}
		if it.Dose != "" {
			segs = append(segs, it.Dose)
		}
		if it.Date != "" {
			segs = append(segs, "on "+it.Date)
		}
		if it.Status != "" {
			segs = append(segs, lower(it.Status))
		}
		parts = append(parts, strings.Join(segs, ", "))
	}
	if more := len(items) - n; more > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", more))
	}
	return strings.Join(parts, "; ") + "."
}
