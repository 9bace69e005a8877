package model

import "time"

// Claim is a single insurance claim under screening. It owns an ordered
// history of document extraction runs and screening runs; artifacts are
// never deleted, only superseded by a newer run.
type Claim struct {
	ID           string    `json:"id"`
	PolicyNumber string    `json:"policy_number"`
	VehicleVIN   string    `json:"vehicle_vin,omitempty"`
	ReportedAt   time.Time `json:"reported_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocType identifies the kind of source document a value was extracted from.
type DocType string

const (
	DocTypePolicy       DocType = "policy"
	DocTypeCostEstimate DocType = "cost_estimate"
	DocTypeServiceBook  DocType = "service_history"
	DocTypeRegistration DocType = "registration"
)
