package model

import "time"

// RunStatus tracks lifecycle of document extraction and screening runs.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// DocumentRun is one extraction pass over one source document. A run only
// counts for aggregation once it is complete AND carries an artifact; newer
// incomplete runs are ignored.
type DocumentRun struct {
	ID          string              `json:"id"`
	ClaimID     string              `json:"claim_id"`
	DocID       string              `json:"doc_id"`
	DocType     DocType             `json:"doc_type"`
	Status      RunStatus           `json:"status"`
	Artifact    *ExtractionArtifact `json:"artifact,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// ExtractionArtifact is the per-document output of the external extraction
// collaborator: extracted fields plus the document's line items.
type ExtractionArtifact struct {
	DocID     string           `json:"doc_id"`
	DocType   DocType          `json:"doc_type"`
	Fields    []ExtractedField `json:"fields"`
	LineItems []LineItem       `json:"line_items,omitempty"`
}

// ExtractedField is one raw extracted field before it becomes a candidate.
type ExtractedField struct {
	FactName   string     `json:"fact_name"`
	Value      any        `json:"value"`
	Normalized string     `json:"normalized_value,omitempty"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
}

// ScreeningRun is one execution of the full screening pipeline for a claim.
// Each run writes a new, uniquely identified result; only the claim's
// "latest" pointer is updated, atomically.
type ScreeningRun struct {
	ID        string           `json:"id"`
	ClaimID   string           `json:"claim_id"`
	Status    RunStatus        `json:"status"`
	Result    *ScreeningResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
