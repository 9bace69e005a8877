package model

import "time"

// Provenance records where an extracted value was taken from: the page and
// character span in the source document plus the literal quote.
type Provenance struct {
	Page     int    `json:"page"`
	CharFrom int    `json:"char_from,omitempty"`
	CharTo   int    `json:"char_to,omitempty"`
	Quote    string `json:"quote,omitempty"`
}

// ExtractionCandidate is one extracted value for a fact from one document
// run. Candidates are immutable; the extraction collaborator produces them.
type ExtractionCandidate struct {
	FactName   string     `json:"fact_name"`
	Value      any        `json:"value"`
	Normalized string     `json:"normalized_value"`
	Confidence float64    `json:"confidence"`
	DocID      string     `json:"doc_id"`
	DocType    DocType    `json:"doc_type"`
	RunID      string     `json:"run_id"`
	RunAt      time.Time  `json:"run_at"`
	Provenance Provenance `json:"provenance"`
}

// ClaimFact is the reconciled value for one fact name. Selected is always
// one of Alternatives; selection is deterministic for a given candidate set
// (highest confidence, tie broken by most recent run, then run ID).
type ClaimFact struct {
	Name         string                `json:"name"`
	Value        any                   `json:"selected_value"`
	Selected     ExtractionCandidate   `json:"selected_from"`
	Alternatives []ExtractionCandidate `json:"alternatives"`
	HasConflict  bool                  `json:"has_conflict"`
}

// FactConflict exists iff two or more candidates for the same fact
// normalize to different values. Both values and their sources are kept
// for the audit trail.
type FactConflict struct {
	FactName        string              `json:"fact_name"`
	DistinctValues  []string            `json:"distinct_values"`
	SourcesPerValue map[string][]string `json:"sources_per_value"`
}

// ClaimFacts is the reconciliation artifact for a claim: one entry per fact
// name plus the conflicts and missing critical facts detected while merging.
type ClaimFacts struct {
	ClaimID         string               `json:"claim_id"`
	Facts           map[string]ClaimFact `json:"facts"`
	Conflicts       []FactConflict       `json:"conflicts,omitempty"`
	MissingCritical []string             `json:"missing_critical,omitempty"`
	SelectedRuns    map[string]string    `json:"selected_runs"` // doc ID -> run ID
	CreatedAt       time.Time            `json:"created_at"`
}

// Get returns the selected value for a fact name, or nil if absent.
func (cf *ClaimFacts) Get(name string) any {
	if f, ok := cf.Facts[name]; ok {
		return f.Value
	}
	return nil
}

// GetString returns the selected value as a string, or "" if absent or not
// a string.
func (cf *ClaimFacts) GetString(name string) string {
	if s, ok := cf.Get(name).(string); ok {
		return s
	}
	return ""
}

// GateStatus is the advisory quality signal attached to a reconciliation
// artifact. It never blocks downstream computation.
type GateStatus string

const (
	GatePass GateStatus = "pass"
	GateWarn GateStatus = "warn"
	GateFail GateStatus = "fail"
)

// ReconciliationGate annotates a ClaimFacts artifact with quality signals
// for downstream consumers.
type ReconciliationGate struct {
	Status               GateStatus `json:"status"`
	MissingCriticalFacts []string   `json:"missing_critical_facts,omitempty"`
	ConflictCount        int        `json:"conflict_count"`
	ProvenanceCoverage   float64    `json:"provenance_coverage"`
	EstimatedSizeBytes   int        `json:"estimated_size_bytes"`
}
