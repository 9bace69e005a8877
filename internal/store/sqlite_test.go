package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedTestClaim(t *testing.T, s *SQLiteStore, id string) {
	t.Helper()
	require.NoError(t, s.CreateClaim(context.Background(), model.Claim{
		ID:           id,
		PolicyNumber: "POL-100",
		VehicleVIN:   "WVWZZZ1JZXW000001",
		ReportedAt:   time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
	}))
}

func TestSQLiteClaimLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedTestClaim(t, s, "clm-1")

	claim, err := s.GetClaim(ctx, "clm-1")
	require.NoError(t, err)
	assert.Equal(t, "POL-100", claim.PolicyNumber)
	assert.Equal(t, "WVWZZZ1JZXW000001", claim.VehicleVIN)

	_, err = s.GetClaim(ctx, "missing")
	assert.Error(t, err)

	claims, err := s.ListClaims(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestSQLiteDocumentRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")

	run, err := s.CreateDocumentRun(ctx, "clm-1", "doc-1", model.DocTypeCostEstimate)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	artifact := &model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocTypeCostEstimate,
		Fields: []model.ExtractedField{
			{FactName: model.FactOdometerKM, Value: "74200", Confidence: 0.95, Provenance: model.Provenance{Page: 1, Quote: "74'200 km"}},
		},
		LineItems: []model.LineItem{
			{Description: "Turbolader", Type: model.ItemParts, TotalPrice: 2200.50, Page: 2},
		},
	}
	require.NoError(t, s.CompleteDocumentRun(ctx, run.ID, artifact))

	runs, err := s.ListDocumentRuns(ctx, "clm-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt)
	require.NotNil(t, runs[0].Artifact)
	require.Len(t, runs[0].Artifact.Fields, 1)
	assert.Equal(t, "74'200 km", runs[0].Artifact.Fields[0].Provenance.Quote)
	require.Len(t, runs[0].Artifact.LineItems, 1)
	assert.InDelta(t, 2200.50, runs[0].Artifact.LineItems[0].TotalPrice, 1e-9)
}

func TestSQLiteFailDocumentRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")

	run, err := s.CreateDocumentRun(ctx, "clm-1", "doc-1", model.DocTypePolicy)
	require.NoError(t, err)
	require.NoError(t, s.FailDocumentRun(ctx, run.ID))

	runs, err := s.ListDocumentRuns(ctx, "clm-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Nil(t, runs[0].Artifact)

	assert.Error(t, s.FailDocumentRun(ctx, "missing"))
	assert.Error(t, s.CompleteDocumentRun(ctx, "missing", &model.ExtractionArtifact{}))
}

func TestSQLiteScreeningRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")

	run, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)

	result := &model.ScreeningResult{
		RunID:   run.ID,
		ClaimID: "clm-1",
		Gate:    model.ReconciliationGate{Status: model.GatePass},
		Payout:  &model.PayoutBreakdown{FinalPayout: 4131.05},
	}
	require.NoError(t, s.CompleteScreeningRun(ctx, run.ID, result))

	got, err := s.GetScreeningRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.InDelta(t, 4131.05, got.Result.Payout.FinalPayout, 1e-9)

	latest, err := s.LatestScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
}

func TestSQLiteLatestPointerFollowsNewestCompletedRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")

	first, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NoError(t, s.CompleteScreeningRun(ctx, first.ID, &model.ScreeningResult{RunID: first.ID, ClaimID: "clm-1"}))

	second, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NoError(t, s.CompleteScreeningRun(ctx, second.ID, &model.ScreeningResult{RunID: second.ID, ClaimID: "clm-1"}))

	latest, err := s.LatestScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// History is append-only; the first run stays readable.
	old, err := s.GetScreeningRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, old.Status)
}

func TestSQLiteFailScreeningRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")

	run, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NoError(t, s.FailScreeningRun(ctx, run.ID, "payout: empty rate schedule"))

	got, err := s.GetScreeningRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "payout: empty rate schedule", got.Error)

	// A failed run never becomes the latest pointer.
	latest, err := s.LatestScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLiteListScreeningRunsFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedTestClaim(t, s, "clm-1")
	seedTestClaim(t, s, "clm-2")

	r1, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NoError(t, s.CompleteScreeningRun(ctx, r1.ID, &model.ScreeningResult{RunID: r1.ID, ClaimID: "clm-1"}))
	r2, err := s.CreateScreeningRun(ctx, "clm-1")
	require.NoError(t, err)
	require.NoError(t, s.FailScreeningRun(ctx, r2.ID, "boom"))
	_, err = s.CreateScreeningRun(ctx, "clm-2")
	require.NoError(t, err)

	byClaim, err := s.ListScreeningRuns(ctx, RunFilter{ClaimID: "clm-1"})
	require.NoError(t, err)
	assert.Len(t, byClaim, 2)

	failed, err := s.ListScreeningRuns(ctx, RunFilter{ClaimID: "clm-1", Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, r2.ID, failed[0].ID)

	limited, err := s.ListScreeningRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
