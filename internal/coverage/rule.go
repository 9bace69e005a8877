package coverage

import (
	"fmt"
	"strings"

	"github.com/avanta-group/claims-cli/internal/model"
)

// RuleMatcher is the zero-ambiguity first tier: zero-price filter, the
// contractual exclusion keyword set, and the exact part-number table. It
// runs before keyword matching because it encodes exclusions that a
// substring match could otherwise misclassify. Confidence is always 1.0.
type RuleMatcher struct {
	tables *Tables
}

// NewRuleMatcher creates the tier-1 matcher over the loaded tables.
func NewRuleMatcher(tables *Tables) *RuleMatcher {
	return &RuleMatcher{tables: tables}
}

func (m *RuleMatcher) Name() string { return "rule" }

// Match resolves an item deterministically or returns nil.
func (m *RuleMatcher) Match(item model.LineItem) *Decision {
	folded := foldTerm(item.Description)

	// Contractual exclusions win outright, zero-priced or not.
	for _, kw := range m.tables.Exclusions {
		if kw != "" && strings.Contains(folded, kw) {
			return &Decision{
				Status:     model.StatusNotCovered,
				Method:     model.MethodRule,
				Confidence: 1.0,
				Rationale:  fmt.Sprintf("exclusion keyword %q", kw),
			}
		}
	}

	// Zero-priced positions carry no payable amount; exclude them so they
	// never inflate category subtotals.
	if item.TotalPrice == 0 {
		return &Decision{
			Status:     model.StatusNotCovered,
			Method:     model.MethodRule,
			Confidence: 1.0,
			Rationale:  "zero-price position",
		}
	}

	if item.ItemCode != "" {
		if entry, ok := m.tables.PartNumbers[normalizePartNumber(item.ItemCode)]; ok {
			status := model.StatusCovered
			if !entry.Covered {
				status = model.StatusNotCovered
			}
			return &Decision{
				Status:     status,
				Category:   entry.Category,
				Method:     model.MethodPartNumber,
				Confidence: 1.0,
				Rationale:  fmt.Sprintf("part number table: %s", item.ItemCode),
			}
		}
	}

	return nil
}
