package reader

import (
	"fmt"
	"regexp"
	"strings"

	"portal-agent/internal/domain/entity"
)

// Amounts render as "S$37.30"; some text sources escape the dollar
// sign, so backslashes are stripped before matching.
var moneyRx = regexp.MustCompile(`(?i)\bS\$\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

const clusterSectionAnchor = "outstanding bills by cluster"

// Section boundaries that end the cluster card scan.
var clusterStopLines = map[string]bool{
	"about": true, "in partnership with": true, "select cluster": true,
}

// PaymentExtractor parses the outstanding-bill cluster cards: cluster
// name, an "Amount to pay:" label, and an amount nearby. It also pulls
// the maintenance note block when the page shows one.
type PaymentExtractor struct{}

func (PaymentExtractor) Workflow() entity.Workflow { return entity.WorkflowPayments }

func (PaymentExtractor) Ready(cfg Config, snap entity.Snapshot) bool {
	return len(snap.Headings) >= cfg.MinHeadings && len(snap.Links) >= cfg.MinLinks
}

func (PaymentExtractor) Reason(count int) string {
	return fmt.Sprintf("Extracted %d cluster bill item(s)", count)
}

func (e PaymentExtractor) Extract(snap entity.Snapshot) entity.Extraction {
	lines := snap.TextLines()
	note := extractNote(lines)
	clusters := extractClusters(lines)
	return entity.Extraction{
		Items:   clusters,
		Count:   len(clusters),
		Summary: summarizeClusters(clusters),
		TTS:     ttsClusters(clusters, note, ttsLimit),
		Note:    note,
	}
}

func grabAmount(s string) string {
	return moneyRx.FindString(strings.ReplaceAll(s, `\`, ""))
}

// extractNote captures the maintenance note block: a line starting
// with "Note" plus a few following lines until a blank or a new
// heading.
func extractNote(lines []string) string {
	for i, t := range lines {
		if !strings.HasPrefix(lower(t), "note") {
			continue
		}
		out := []string{t}
		end := i + 9
		if end > len(lines) {
			end = len(lines)
		}
		for j := i + 1; j < end; j++ {
			line := lines[j]
			if line == "" {
				break
			}
			if len(line) < 60 && isTitleCased(line) {
				break
			}
			out = append(out, line)
		}
		seen := map[string]bool{}
		uniq := out[:0]
		for _, p := range out {
			if !seen[p] {
				seen[p] = true
				uniq = append(uniq, p)
			}
		}
		return strings.TrimSpace(strings.Join(uniq, " "))
	}
	return ""
}

func extractClusters(lines []string) []entity.BillCluster {
	anchor := -1
	for i, t := range lines {
		if lower(t) == clusterSectionAnchor {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return dedupClusters(scanClusterCards(lines, 0, nil))
	}
	return dedupClusters(scanClusterCards(lines, anchor+1, clusterStopLines))
}

// scanClusterCards picks (name, amount) pairs: a candidate name line
// followed within a few lines by "Amount to pay:" and an amount on
// that line or shortly after.
func scanClusterCards(lines []string, start int, stops map[string]bool) []entity.BillCluster {
	var items []entity.BillCluster
	n := len(lines)
	for i := start; i < n; {
		t := lines[i]
		tl := lower(t)
		if stops != nil && stops[tl] {
			break
		}
		if t == "" || strings.HasPrefix(tl, "amount to pay") || strings.HasSuffix(tl, ":") || len(t) < 6 {
			i++
			continue
		}
		// An amount line is never a cluster name.
		if grabAmount(t) != "" {
			i++
			continue
		}

		labelIdx := -1
		amount := ""
		lookEnd := i + 8
		if lookEnd > n {
			lookEnd = n
		}
		for j := i + 1; j < lookEnd; j++ {
			tj := lines[j]
			if !strings.HasPrefix(lower(tj), "amount to pay") {
				continue
			}
			labelIdx = j
			amount = grabAmount(tj)
			if amount == "" {
				valEnd := j + 4
				if valEnd > n {
					valEnd = n
				}
				for k := j + 1; k < valEnd; k++ {
					if amount = grabAmount(lines[k]); amount != "" {
						break
					}
				}
			}
			break
		}

		if labelIdx >= 0 {
			items = append(items, entity.BillCluster{Cluster: t, Amount: amount})
			if next := labelIdx + 1; next > i+1 {
				i = next
			} else {
				i++
			}
			continue
		}
		i++
	}
	return items
}

func dedupClusters(items []entity.BillCluster) []entity.BillCluster {
	type key struct{ cluster, amount string }
	seen := map[key]bool{}
	uniq := make([]entity.BillCluster, 0, len(items))
	for _, it := range items {
		k := key{it.Cluster, it.Amount}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, it)
	}
	return uniq
}

func summarizeClusters(items []entity.BillCluster) string {
	if len(items) == 0 {
		return "No outstanding bills detected."
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s — %s", orUnknown(it.Cluster, "?"), it.Amount))
	}
	return strings.Join(parts, " | ")
}

func cleanAmount(a string) string {
	return entity.NormText(strings.ReplaceAll(a, `\`, ""))
}

var zeroAmounts = map[string]bool{"": true, "S$0.00": true, "S$0": true, "S$0.0": true}

// ttsClusters builds the speech-friendly line: "Outstanding bills:
// NHG, S$37.30; SingHealth, S$0.00; and 1 more. Note: ...". All-zero
// amounts soften the prefix to "Bills by cluster:".
func ttsClusters(items []entity.BillCluster, note string, limit int) string {
	if len(items) == 0 {
		base := "No outstanding bills."
		if note != "" {
			return base + " " + truncateRunes(note, 180)
		}
		return base
	}

	n := len(items)
	if n > limit {
		n = limit
	}
	parts := make([]string, 0, n)
	for _, c := range items[:n] {
		name := orUnknown(strings.TrimSpace(c.Cluster), "Unknown cluster")
		if amt := cleanAmount(c.Amount); amt != "" {
			parts = append(parts, name+", "+amt)
		} else {
			parts = append(parts, name)
		}
	}

	prefix := "Bills by cluster: "
	for _, c := range items {
		if !zeroAmounts[strings.TrimSpace(c.Amount)] {
			prefix = "Outstanding bills: "
			break
		}
	}
	spoken := strings.Join(parts, "; ")
	if more := len(items) - n; more > 0 {
		spoken += fmt.Sprintf("; and %d more", more)
	}
	if note != "" {
		return prefix + spoken + ". " + truncateRunes(note, 160)
	}
	return prefix + spoken + "."
}
