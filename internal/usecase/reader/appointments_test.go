package reader

import (
	"strings"
	"testing"

	"portal-agent/internal/domain/entity"
)

func textNodes(lines ...string) []entity.TextNode {
	out := make([]entity.TextNode, 0, len(lines))
	for _, l := range lines {
		out = append(out, entity.TextNode{Text: l})
	}
	return out
}

func TestAppointmentCardExtraction(t *testing.T) {
	snap := entity.Snapshot{
		URL: "https://eservices.healthhub.sg/appointments",
		Texts: textNodes(
			"Health e-services",
			"27", "Aug", "2025",
			"Geylang Polyclinic",
			"Wed, 09:10 AM",
			"Dental Cleaning",
			"GEYD LEVEL 2",
		),
		Images: []entity.Image{{Src: "/logos/nhgp.png", Alt: "provider NHGP"}},
	}

	ex := AppointmentExtractor{}.Extract(snap)
	if ex.Count != 1 {
		t.Fatalf("count = %d, summary = %q", ex.Count, ex.Summary)
	}
	items := ex.Items.([]entity.Appointment)
	got := items[0]

	if got.Date != "27 Aug 2025" {
		t.Errorf("date = %q", got.Date)
	}
	if got.Time != "09:10 AM" {
		t.Errorf("time = %q", got.Time)
	}
	if got.Clinic != "Geylang Polyclinic" {
		t.Errorf("clinic = %q", got.Clinic)
	}
	if got.Procedure != "Dental Cleaning" {
		t.Errorf("procedure = %q", got.Procedure)
	}
	if got.Location != "GEYD LEVEL 2" {
		t.Errorf("location = %q", got.Location)
	}
	if got.Provider != "provider NHGP" {
		t.Errorf("provider = %q", got.Provider)
	}

	if !strings.Contains(ex.Summary, "Geylang Polyclinic") {
		t.Errorf("summary = %q", ex.Summary)
	}
	if !strings.Contains(ex.TTS, "Dental Cleaning at Geylang Polyclinic") {
		t.Errorf("tts = %q", ex.TTS)
	}
}

func TestAppointmentDedup(t *testing.T) {
	card := []string{"27", "Aug", "2025", "Geylang Polyclinic", "Wed, 09:10 AM", "Dental Cleaning", "GEYD LEVEL 2"}
	lines := append(append([]string{}, card...), card...)
	snap := entity.Snapshot{Texts: textNodes(lines...)}

	ex := AppointmentExtractor{}.Extract(snap)
	if ex.Count != 1 {
		t.Fatalf("duplicate card not collapsed, count = %d", ex.Count)
	}
}

func TestAppointmentEmptyPage(t *testing.T) {
	ex := AppointmentExtractor{}.Extract(entity.Snapshot{})
	if ex.Count != 0 {
		t.Fatalf("count = %d", ex.Count)
	}
	if ex.Summary != "No appointments found." {
		t.Errorf("summary = %q", ex.Summary)
	}
}

func TestAppointmentLoosePass(t *testing.T) {
	// No day/month/year header, but a month and a time close together.
	snap := entity.Snapshot{
		Texts: textNodes("Visit on 3 September 2025", "Hougang Polyclinic", "10:30 AM"),
	}
	ex := AppointmentExtractor{}.Extract(snap)
	if ex.Count == 0 {
		t.Fatal("loose pass found nothing")
	}
	items := ex.Items.([]entity.Appointment)
	if items[0].Time != "10:30 AM" {
		t.Errorf("time = %q", items[0].Time)
	}
}

func TestAppointmentReady(t *testing.T) {
	cfg := Config{MinTexts: 5}
	thin := entity.Snapshot{Texts: textNodes("a", "b")}
	if (AppointmentExtractor{}).Ready(cfg, thin) {
		t.Error("thin page should not be ready")
	}

	lines := []string{"27", "Aug", "2025", "Clinic", "09:10 AM", "filler"}
	rich := entity.Snapshot{Texts: textNodes(lines...)}
	if !(AppointmentExtractor{}).Ready(cfg, rich) {
		t.Error("page with month and time should be ready")
	}
}
