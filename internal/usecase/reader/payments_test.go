package reader

import (
	"strings"
	"testing"

	"portal-agent/internal/domain/entity"
)

func TestPaymentClusterExtraction(t *testing.T) {
	snap := entity.Snapshot{
		Texts: textNodes(
			"Health e-services",
			"Outstanding Bills by Cluster",
			"National Healthcare Group",
			"Amount to pay:",
			"S$37.30",
			"SingHealth",
			"Amount to pay:",
			"S$0.00",
			"About",
			"Ignored Cluster After Footer",
			"Amount to pay:",
			"S$99.99",
		),
	}
	ex := PaymentExtractor{}.Extract(snap)
	if ex.Count != 2 {
		t.Fatalf("count = %d, summary = %q", ex.Count, ex.Summary)
	}
	items := ex.Items.([]entity.BillCluster)

	if items[0].Cluster != "National Healthcare Group" || items[0].Amount != "S$37.30" {
		t.Errorf("first cluster = %+v", items[0])
	}
	if items[1].Cluster != "SingHealth" || items[1].Amount != "S$0.00" {
		t.Errorf("second cluster = %+v", items[1])
	}

	if !strings.HasPrefix(ex.TTS, "Outstanding bills: ") {
		t.Errorf("tts = %q", ex.TTS)
	}
	if !strings.Contains(ex.TTS, "National Healthcare Group, S$37.30") {
		t.Errorf("tts = %q", ex.TTS)
	}
}

func TestPaymentGlobalFallbackWithoutAnchor(t *testing.T) {
	snap := entity.Snapshot{
		Texts: textNodes(
			"National University Health System",
			"Amount to pay:",
			"S$12.00",
		),
	}
	ex := PaymentExtractor{}.Extract(snap)
	if ex.Count != 1 {
		t.Fatalf("count = %d", ex.Count)
	}
	got := ex.Items.([]entity.BillCluster)[0]
	if got.Cluster != "National University Health System" || got.Amount != "S$12.00" {
		t.Errorf("cluster = %+v", got)
	}
}

func TestPaymentEscapedAmount(t *testing.T) {
	if got := grabAmount(`S\$1,234.50`); got != "S$1,234.50" {
		t.Errorf("grabAmount = %q", got)
	}
	if got := grabAmount("no money here"); got != "" {
		t.Errorf("grabAmount = %q", got)
	}
}

func TestPaymentNoteExtraction(t *testing.T) {
	snap := entity.Snapshot{
		Texts: textNodes(
			"Note",
			"payment services will be unavailable on 5 Sep from 1am to 3am.",
			"Outstanding Bills by Cluster",
		),
	}
	ex := PaymentExtractor{}.Extract(snap)
	if !strings.Contains(ex.Note, "unavailable on 5 Sep") {
		t.Errorf("note = %q", ex.Note)
	}
}

func TestPaymentEmptyPage(t *testing.T) {
	ex := PaymentExtractor{}.Extract(entity.Snapshot{})
	if ex.Count != 0 {
		t.Fatalf("count = %d", ex.Count)
	}
	if ex.Summary != "No outstanding bills detected." {
		t.Errorf("summary = %q", ex.Summary)
	}
	if ex.TTS != "No outstanding bills." {
		t.Errorf("tts = %q", ex.TTS)
	}
}

func TestPaymentAllZeroAmountsSoftenTTSPrefix(t *testing.T) {
	snap := entity.Snapshot{
		Texts: textNodes(
			"Outstanding Bills by Cluster",
			"National Healthcare Group",
			"Amount to pay:",
			"S$0.00",
		),
	}
	ex := PaymentExtractor{}.Extract(snap)
	if !strings.HasPrefix(ex.TTS, "Bills by cluster: ") {
		t.Errorf("tts = %q", ex.TTS)
	}
}
