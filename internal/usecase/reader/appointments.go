package reader

import (
	"fmt"
	"regexp"
	"strings"

	"portal-agent/internal/domain/entity"
)

var (
	dayRx  = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
	yearRx = regexp.MustCompile(`^\s*(20\d{2})\s*$`)
)

// AppointmentExtractor parses the appointment cards the portal renders
// as a flat run of text lines:
//
//	27 / Aug / 2025 / Geylang Polyclinic / Wed, 09:10 AM / Dental Cleaning / GEYD LEVEL 2
//
// Drift and missing pieces are tolerated; a looser month+time pass
// backstops pages that break the card shape entirely.
type AppointmentExtractor struct{}

func (AppointmentExtractor) Workflow() entity.Workflow { return entity.WorkflowAppointments }

func (AppointmentExtractor) Ready(cfg Config, snap entity.Snapshot) bool {
	if len(snap.Texts) < cfg.MinTexts {
		return false
	}
	joined := joinedText(snap.TextLines())
	return hasMonth(joined) && timeRx.MatchString(joined)
}

func (AppointmentExtractor) Reason(count int) string {
	return fmt.Sprintf("Extracted %d appointment(s)", count)
}

func (e AppointmentExtractor) Extract(snap entity.Snapshot) entity.Extraction {
	lines := snap.TextLines()
	provider := providerFromImages(snap.Images)

	var items []entity.Appointment
	for i := 0; i < len(lines); {
		if appt, ok := cardAt(lines, i); ok {
			appt.Provider = provider
			items = append(items, appt)
			i += 7
			continue
		}
		i++
	}
	if len(items) == 0 {
		items = looseAppointmentPass(lines, provider)
	}
	items = dedupAppointments(items)

	return entity.Extraction{
		Items:   items,
		Count:   len(items),
		Summary: summarizeAppointments(items),
		TTS:     ttsAppointments(items, ttsLimit),
	}
}

// cardAt matches the day/month/year header at i and fills the fields
// from a small window after it.
func cardAt(lines []string, i int) (entity.Appointment, bool) {
	if i+2 >= len(lines) {
		return entity.Appointment{}, false
	}
	day := dayRx.FindStringSubmatch(lines[i])
	year := yearRx.FindStringSubmatch(lines[i+2])
	if day == nil || year == nil || !months[lower(lines[i+1])] {
		return entity.Appointment{}, false
	}

	appt := entity.Appointment{
		Date: day[1] + " " + lines[i+1] + " " + year[1],
	}
	end := i + 12
	if end > len(lines) {
		end = len(lines)
	}
	for j := i + 3; j < end; j++ {
		t := lines[j]
		tl := lower(t)

		if appt.Clinic == "" && len(t) > 2 {
			appt.Clinic = t
			continue
		}
		if appt.Time == "" {
			if m := timeRx.FindString(t); m != "" {
				appt.Time = strings.ToUpper(m)
				continue
			}
		}
		if appt.Procedure == "" && !isUpperText(t) && len(t) >= 6 && !contains(tl, "room") {
			appt.Procedure = t
			continue
		}
		if appt.Location == "" && (contains(tl, "level") || contains(tl, "room") || isUpperText(t)) {
			appt.Location = t
			continue
		}
	}
	return appt, true
}

// looseAppointmentPass catches pages where the card header never
// matched: any line carrying a month with a time nearby becomes a
// best-effort item.
func looseAppointmentPass(lines []string, provider string) []entity.Appointment {
	var items []entity.Appointment
	for k := 0; k+1 < len(lines); k++ {
		tl := lower(lines[k])
		if !hasMonth(tl) {
			continue
		}
		end := k + 3
		if end > len(lines) {
			end = len(lines)
		}
		nearby := strings.Join(lines[k:end], " ")
		m := timeRx.FindString(nearby)
		if m == "" {
			continue
		}
		appt := entity.Appointment{
			Date:     lines[k],
			Time:     strings.ToUpper(m),
			Provider: provider,
		}
		if k+1 < len(lines) {
			appt.Clinic = lines[k+1]
		}
		if k+2 < len(lines) {
			appt.Procedure = lines[k+2]
		}
		items = append(items, appt)
	}
	return items
}

// providerFromImages pulls a provider name when the snapshot carries a
// logo image tagged with alt='provider ...'; logos usually live outside
// the text stream.
func providerFromImages(images []entity.Image) string {
	for _, im := range images {
		alt := lower(entity.NormText(im.Alt))
		if !contains(alt, "provider") {
			continue
		}
		if name := strings.TrimSpace(im.Alt); name != "" {
			return name
		}
		if i := strings.LastIndex(im.Src, "/"); i >= 0 {
			return im.Src[i+1:]
		}
		return im.Src
	}
	return ""
}

func dedupAppointments(items []entity.Appointment) []entity.Appointment {
	type key struct{ date, time, clinic, procedure, location string }
	seen := map[key]bool{}
	uniq := make([]entity.Appointment, 0, len(items))
	for _, it := range items {
		k := key{it.Date, it.Time, it.Clinic, it.Procedure, it.Location}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, it)
	}
	return uniq
}

func summarizeAppointments(items []entity.Appointment) string {
	if len(items) == 0 {
		return "No appointments found."
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s @ %s — %s — %s — %s",
			orUnknown(it.Date, "Unknown Date"),
			orUnknown(it.Time, "?"),
			orUnknown(it.Clinic, "Unknown Clinic"),
			orUnknown(it.Procedure, "Unknown Procedure"),
			orUnknown(it.Location, "Unknown Location")))
	}
	return strings.Join(parts, " | ")
}

func ttsAppointments(items []entity.Appointment, limit int) string {
	if len(items) == 0 {
		return "No appointments were found."
	}
	parts := make([]string, 0, limit+1)
	n := len(items)
	if n > limit {
		n = limit
	}
	for _, it := range items[:n] {
		segs := []string{orUnknown(it.Procedure, "An appointment")}
		if it.Clinic != "" {
			segs = append(segs, "at "+it.Clinic)
		}
		if it.Date != "" {
			when := "on " + it.Date
			if it.Time != "" {
				when += ", " + it.Time
			}
			segs = append(segs, when)
		}
		parts = append(parts, strings.Join(segs, " "))
	}
	if more := len(items) - n; more > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", more))
	}
	return strings.Join(parts, "; ") + "."
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
