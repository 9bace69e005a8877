package model

import "time"

// PayoutBreakdown retains every intermediate of the payout chain for audit.
// Created once per screening run and never mutated; a re-run produces a new
// breakdown and prior ones stay in the run history.
type PayoutBreakdown struct {
	CoveredPartsGross float64          `json:"covered_parts_gross"`
	CoveredLaborGross float64          `json:"covered_labor_gross"`
	CategoryPayouts   []CategoryPayout `json:"category_payouts,omitempty"`
	AppliedPartsRate  float64          `json:"applied_parts_rate"`
	AppliedLaborRate  float64          `json:"applied_labor_rate"`
	PreCapSubtotal    float64          `json:"pre_cap_subtotal"`
	CappedSubtotal    float64          `json:"capped_subtotal"`
	CapApplied        bool             `json:"cap_applied"`
	VATPercent        float64          `json:"vat_percent"`
	VATAmount         float64          `json:"vat_amount"`
	VATApplied        bool             `json:"vat_applied"`
	SubtotalWithVAT   float64          `json:"subtotal_with_vat"`
	DeductibleAmount  float64          `json:"deductible_amount"`

	// ClaimTotal bounds the final payout when positive; the payout never
	// exceeds what the claim is worth.
	ClaimTotal          float64 `json:"claim_total,omitempty"`
	ClampedToClaimTotal bool    `json:"clamped_to_claim_total,omitempty"`
	FinalPayout         float64 `json:"final_payout"`

	CreatedAt time.Time `json:"created_at"`
}

// CategoryPayout is the per-category slice of the rate step: the covered
// gross attributed to one category, the rates actually applied (the
// category's own coverage rate when it declares one, the tier rates
// otherwise), and the outcome of the per-category cap.
type CategoryPayout struct {
	Category    string  `json:"category"`
	PartsGross  float64 `json:"parts_gross"`
	LaborGross  float64 `json:"labor_gross"`
	PartsRate   float64 `json:"parts_rate"`
	LaborRate   float64 `json:"labor_rate"`
	RatedAmount float64 `json:"rated_amount"`
	CapApplied  bool    `json:"cap_applied,omitempty"`
}
