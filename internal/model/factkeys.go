package model

// Well-known fact keys the orchestrator interprets. The fact set itself is
// open and schema-declared; only these few carry pipeline semantics
// (auto-reject rules and rate-tier selection).
const (
	FactPolicyNumber      = "policy_number"
	FactVIN               = "vin"
	FactLossDate          = "loss_date"
	FactOdometerKM        = "odometer_km"
	FactFirstRegistration = "first_registration"
	FactClaimTotal        = "claim_total"
)
