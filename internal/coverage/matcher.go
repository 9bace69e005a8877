// Package coverage classifies cost-estimate line items against a policy's
// covered categories through a fixed three-tier cascade: deterministic
// rules, keyword matching, then the external judgment collaborator. Each
// tier only receives items the previous tier left unresolved.
package coverage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/avanta-group/claims-cli/internal/model"
)

// Decision is a single matcher's verdict for a line item. A nil Decision
// means the matcher could not resolve the item and the next tier runs.
type Decision struct {
	Status     model.CoverageStatus
	Category   string
	Method     model.MatchMethod
	Confidence float64
	Rationale  string
}

// Matcher resolves a line item or passes, in the cascade's tier order.
type Matcher interface {
	Name() string
	Match(item model.LineItem) *Decision
}

// foldTransformer lowercases comparisons across German/French diacritics:
// decompose, drop combining marks, recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldTerm produces the diacritic- and case-insensitive comparison form of
// a term or description.
func foldTerm(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
