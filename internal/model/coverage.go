package model

import "time"

// CoverageStatus is the outcome of the matcher cascade for one line item.
type CoverageStatus string

const (
	StatusCovered      CoverageStatus = "covered"
	StatusNotCovered   CoverageStatus = "not_covered"
	StatusReviewNeeded CoverageStatus = "review_needed"
)

// MatchMethod records which cascade tier resolved a line item, for audit.
type MatchMethod string

const (
	MethodRule       MatchMethod = "rule"
	MethodPartNumber MatchMethod = "part_number"
	MethodKeyword    MatchMethod = "keyword"
	MethodJudgment   MatchMethod = "judgment"
	MethodNone       MatchMethod = ""
)

// LineItemCoverage is the per-item cascade result. Invariants:
// CoveredAmount + NotCoveredAmount == Item.TotalPrice, and
// CoveredAmount > 0 only when Status is covered.
type LineItemCoverage struct {
	Item             LineItem       `json:"item"`
	Status           CoverageStatus `json:"status"`
	MatchedCategory  string         `json:"matched_category,omitempty"`
	Method           MatchMethod    `json:"match_method,omitempty"`
	Confidence       float64        `json:"confidence"`
	Rationale        string         `json:"rationale,omitempty"`
	CoveredAmount    float64        `json:"covered_amount"`
	NotCoveredAmount float64        `json:"not_covered_amount"`
}

// CategoryTotals aggregates coverage amounts for one covered category.
type CategoryTotals struct {
	Category         string  `json:"category"`
	CoveredParts     float64 `json:"covered_parts"`
	CoveredLabor     float64 `json:"covered_labor"`
	CoveredAmount    float64 `json:"covered_amount"`
	NotCoveredAmount float64 `json:"not_covered_amount"`
	ItemCount        int     `json:"item_count"`
}

// CoverageAnalysisResult is the complete cascade output for a claim's line
// items: per-item decisions plus category and overall subtotals. The
// ReviewNeededTotal is a materiality signal for the orchestrator.
type CoverageAnalysisResult struct {
	ClaimID           string                    `json:"claim_id"`
	Items             []LineItemCoverage        `json:"items"`
	ByCategory        map[string]CategoryTotals `json:"by_category"`
	CoveredPartsGross float64                   `json:"covered_parts_gross"`
	CoveredLaborGross float64                   `json:"covered_labor_gross"`
	CoveredTotal      float64                   `json:"covered_total"`
	NotCoveredTotal   float64                   `json:"not_covered_total"`
	ReviewNeededTotal float64                   `json:"review_needed_total"`
	ClaimTotal        float64                   `json:"claim_total"`
	CreatedAt         time.Time                 `json:"created_at"`
}
