package coverage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avanta-group/claims-cli/internal/model"
)

// KeywordMatcher is the confidence-scored second tier: substring matching
// of the item description (and carried repair context) against the term
// table. Matching is case- and diacritic-insensitive; German and French
// terms share one table.
type KeywordMatcher struct {
	// ordered terms: longest first so a specific compound term is checked
	// before its generic substring, then by confidence, then lexicographic
	// for a total order.
	terms  []string
	tables *Tables
}

// NewKeywordMatcher creates the tier-2 matcher over the loaded tables.
func NewKeywordMatcher(tables *Tables) *KeywordMatcher {
	terms := make([]string, 0, len(tables.Keywords))
	for term := range tables.Keywords {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		ca, cb := tables.Keywords[a].Confidence, tables.Keywords[b].Confidence
		if ca != cb {
			return ca > cb
		}
		return a < b
	})
	return &KeywordMatcher{terms: terms, tables: tables}
}

func (m *KeywordMatcher) Name() string { return "keyword" }

// Match returns the first (most specific) term hit, or nil. The decision's
// status reflects the term entry; acceptance thresholds are applied by the
// analyzer, which may still route a weak hit to the judgment tier.
func (m *KeywordMatcher) Match(item model.LineItem) *Decision {
	text := foldTerm(item.Description)
	if item.RepairContext != "" {
		text += " " + foldTerm(item.RepairContext)
	}

	for _, term := range m.terms {
		if !strings.Contains(text, term) {
			continue
		}
		entry := m.tables.Keywords[term]
		status := model.StatusCovered
		if !entry.Covered {
			status = model.StatusNotCovered
		}
		return &Decision{
			Status:     status,
			Category:   entry.Category,
			Method:     model.MethodKeyword,
			Confidence: entry.Confidence,
			Rationale:  fmt.Sprintf("keyword %q", term),
		}
	}
	return nil
}
