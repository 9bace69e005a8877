// Package judgment talks to the external judgment collaborator: the
// model-backed matcher invoked only for line items neither the rule nor
// the keyword tier could resolve with sufficient confidence.
package judgment

import "context"

// Request carries one unresolved line item to the collaborator.
type Request struct {
	Description   string   `json:"description"`
	RepairContext string   `json:"repair_context,omitempty"`
	ItemType      string   `json:"item_type,omitempty"`
	Categories    []string `json:"candidate_categories"`
}

// Response is the collaborator's verdict. Category is empty when the item
// matches no covered category. Confidence is the collaborator's own
// estimate; acceptance thresholds are applied by the caller.
type Response struct {
	Category   string  `json:"category"`
	Covered    bool    `json:"covered"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Matcher resolves a single line item. Implementations must honor the
// context deadline; callers treat any error as collaborator-unavailable
// and degrade the item to review.
type Matcher interface {
	MatchItem(ctx context.Context, req Request) (*Response, error)
}
