package model

import "time"

// HardFailReason is an unambiguous condition that permits skipping the
// downstream judgment stage entirely. Screening never auto-approves.
type HardFailReason string

const (
	HardFailPolicyDates  HardFailReason = "policy_date_violation"
	HardFailMileageLimit HardFailReason = "mileage_limit_exceeded"
	HardFailPrimaryItem  HardFailReason = "primary_item_not_covered"
)

// HardFail records one auto-reject condition with the evidence behind it.
type HardFail struct {
	Reason HardFailReason `json:"reason"`
	Detail string         `json:"detail"`
}

// ScreeningResult is the top-level artifact of one screening run: the
// reconciled facts, the gate, the coverage analysis, the payout breakdown,
// and the orchestrator's flags. Immutable once written.
type ScreeningResult struct {
	RunID     string                  `json:"run_id"`
	ClaimID   string                  `json:"claim_id"`
	Facts     *ClaimFacts             `json:"facts"`
	Gate      ReconciliationGate      `json:"gate"`
	Coverage  *CoverageAnalysisResult `json:"coverage"`
	Payout    *PayoutBreakdown        `json:"payout"`
	Policy    string                  `json:"policy_version,omitempty"`

	// MaterialityFlag is set when the covered share of the claim total is
	// below the configured threshold; such claims require escalation and
	// must never be silently approved for a near-zero payout.
	MaterialityFlag bool       `json:"materiality_flag"`
	CoveredShare    float64    `json:"covered_share"`
	HardFails       []HardFail `json:"hard_fails,omitempty"`
	AutoReject      bool       `json:"auto_reject"`

	// Warnings are advisory consistency findings, such as a document
	// policy number that differs from the claim record. They never block
	// the run.
	Warnings []string `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
