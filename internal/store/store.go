package store

import (
	"context"

	"github.com/avanta-group/claims-cli/internal/model"
)

// RunFilter specifies criteria for listing screening runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	ClaimID string          `json:"claim_id,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines persistence for claims, document extraction runs, and
// screening runs. Artifacts are append-only: a completed run is never
// edited, a re-run writes a new row, and only the claim's latest-run
// pointer is updated.
type Store interface {
	// Claims
	CreateClaim(ctx context.Context, claim model.Claim) error
	GetClaim(ctx context.Context, claimID string) (*model.Claim, error)
	ListClaims(ctx context.Context, limit, offset int) ([]model.Claim, error)

	// Document extraction runs
	CreateDocumentRun(ctx context.Context, claimID, docID string, docType model.DocType) (*model.DocumentRun, error)
	CompleteDocumentRun(ctx context.Context, runID string, artifact *model.ExtractionArtifact) error
	FailDocumentRun(ctx context.Context, runID string) error
	ListDocumentRuns(ctx context.Context, claimID string) ([]model.DocumentRun, error)

	// Screening runs
	CreateScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error)
	CompleteScreeningRun(ctx context.Context, runID string, result *model.ScreeningResult) error
	FailScreeningRun(ctx context.Context, runID string, errMsg string) error
	GetScreeningRun(ctx context.Context, runID string) (*model.ScreeningRun, error)
	ListScreeningRuns(ctx context.Context, filter RunFilter) ([]model.ScreeningRun, error)
	LatestScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
