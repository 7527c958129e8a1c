package extraction

import (
	"regexp"
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

var partyLabels = []string{"shipper", "consignee", "notify party", "notify"}

var partyLabelLine = regexp.MustCompile(`(?i)^\s*(shipper|consignee|notify\s*party|notify)\s*:?\s*(.*)$`)

// extractParty pulls the block following label (e.g. "Shipper") out of
// text: the label's own line (if it carries a name) plus subsequent
// non-label lines up to the next blank line or the next known label,
// joined as the address. Blocks whose name contains the forwarder's own
// name are discarded — the forwarder is never its own shipper/consignee.
func extractParty(text, label, forwarderName string) *domain.PartyBlock {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := partyLabelLine.FindStringSubmatch(line)
		if len(m) < 3 || !strings.EqualFold(normalizePartyLabel(m[1]), normalizePartyLabel(label)) {
			continue
		}

		name := strings.TrimSpace(m[2])
		var addressLines []string
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				break
			}
			if isKnownPartyLabel(next) {
				break
			}
			if name == "" {
				name = next
				continue
			}
			addressLines = append(addressLines, next)
		}

		if name == "" {
			return nil
		}
		if forwarderName != "" && strings.Contains(strings.ToLower(name), strings.ToLower(forwarderName)) {
			return nil
		}
		return &domain.PartyBlock{Name: name, Address: strings.Join(addressLines, ", ")}
	}
	return nil
}

func normalizePartyLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "notify") {
		return "notify"
	}
	return s
}

func isKnownPartyLabel(line string) bool {
	lower := strings.ToLower(line)
	for _, l := range partyLabels {
		if strings.HasPrefix(lower, l) {
			return true
		}
	}
	return false
}

// partyExtractionDocTypes is the closed set of document types for which
// party blocks are trusted: draft/final SI and HBL documents, where
// shipper/consignee/notify fields are authoritative.
var partyExtractionDocTypes = map[domain.DocumentType]struct{}{
	domain.DocSIDraft:  {},
	domain.DocHBLDraft: {},
	domain.DocHBL:      {},
}
