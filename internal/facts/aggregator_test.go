package facts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/config"
	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testGateCfg = config.GateConfig{
	MaxMissingCritical: 2,
	MaxConflicts:       2,
	MaxArtifactBytes:   256 * 1024,
}

func docRun(id, docID string, docType model.DocType, at time.Time, fields ...model.ExtractedField) model.DocumentRun {
	return model.DocumentRun{
		ID:          id,
		ClaimID:     "clm-1",
		DocID:       docID,
		DocType:     docType,
		Status:      model.RunStatusComplete,
		CreatedAt:   at,
		CompletedAt: &at,
		Artifact: &model.ExtractionArtifact{
			DocID:   docID,
			DocType: docType,
			Fields:  fields,
		},
	}
}

type runStore struct {
	store.Store
	runs []model.DocumentRun
}

func (s *runStore) ListDocumentRuns(context.Context, string) ([]model.DocumentRun, error) {
	return s.runs, nil
}

func aggregateRuns(t *testing.T, schemas *model.SchemaRegistry, runs ...model.DocumentRun) (*model.ClaimFacts, model.ReconciliationGate) {
	t.Helper()
	a := New(&runStore{runs: runs}, schemas, testGateCfg)
	cf, gate, err := a.Aggregate(context.Background(), "clm-1")
	require.NoError(t, err)
	return cf, gate
}

func TestAggregateSingleSource(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cf, gate := aggregateRuns(t, nil, docRun("run-1", "doc-1", model.DocTypeCostEstimate, at,
		model.ExtractedField{FactName: "odometer_km", Value: "74'200", Confidence: 0.95, Provenance: model.Provenance{Page: 1}},
	))

	assert.Equal(t, model.GatePass, gate.Status)
	require.Contains(t, cf.Facts, "odometer_km")
	fact := cf.Facts["odometer_km"]
	assert.Equal(t, "74200", fact.Selected.Normalized)
	assert.False(t, fact.HasConflict)
	assert.Equal(t, "run-1", cf.SelectedRuns["doc-1"])
}

func TestAggregateConflictRecordedAndResolved(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cf, gate := aggregateRuns(t, nil,
		docRun("run-1", "doc-estimate", model.DocTypeCostEstimate, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74'200", Confidence: 0.95}),
		docRun("run-2", "doc-service", model.DocTypeServiceBook, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74410", Confidence: 0.80}),
	)

	// One conflict is a warning, not a failure.
	assert.Equal(t, model.GateWarn, gate.Status)
	require.Len(t, cf.Conflicts, 1)
	conflict := cf.Conflicts[0]
	assert.Equal(t, "odometer_km", conflict.FactName)
	assert.ElementsMatch(t, []string{"74200", "74410"}, conflict.DistinctValues)
	assert.Len(t, conflict.SourcesPerValue["74200"], 1)
	assert.Len(t, conflict.SourcesPerValue["74410"], 1)

	// The higher-confidence candidate wins; both remain as alternatives.
	fact := cf.Facts["odometer_km"]
	assert.Equal(t, "74200", fact.Selected.Normalized)
	assert.True(t, fact.HasConflict)
	assert.Len(t, fact.Alternatives, 2)
}

func TestAggregateEqualNormalizedValuesNoConflict(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cf, gate := aggregateRuns(t, nil,
		docRun("run-1", "doc-1", model.DocTypeCostEstimate, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74'200", Confidence: 0.95}),
		docRun("run-2", "doc-2", model.DocTypeServiceBook, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74200", Confidence: 0.80}),
	)

	assert.Equal(t, model.GatePass, gate.Status)
	assert.Empty(t, cf.Conflicts)
	assert.False(t, cf.Facts["odometer_km"].HasConflict)
}

func TestAggregateIdempotent(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	runs := []model.DocumentRun{
		docRun("run-1", "doc-1", model.DocTypeCostEstimate, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74200", Confidence: 0.9},
			model.ExtractedField{FactName: "loss_date", Value: "2025-07-01", Confidence: 0.9}),
		docRun("run-2", "doc-2", model.DocTypeServiceBook, at,
			model.ExtractedField{FactName: "odometer_km", Value: "74410", Confidence: 0.9}),
	}

	first, _ := aggregateRuns(t, nil, runs...)
	for i := 0; i < 5; i++ {
		again, _ := aggregateRuns(t, nil, runs...)
		assert.Equal(t, first.Facts["odometer_km"].Selected.RunID, again.Facts["odometer_km"].Selected.RunID)
		assert.Equal(t, first.Facts["odometer_km"].Value, again.Facts["odometer_km"].Value)
	}
}

func TestSelectWinnerTieBreaks(t *testing.T) {
	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	// Higher confidence wins regardless of recency.
	winner := selectWinner([]model.ExtractionCandidate{
		{Normalized: "a", Confidence: 0.8, RunAt: base.Add(time.Hour), RunID: "run-2"},
		{Normalized: "b", Confidence: 0.9, RunAt: base, RunID: "run-1"},
	})
	assert.Equal(t, "b", winner.Normalized)

	// Equal confidence: most recent run wins.
	winner = selectWinner([]model.ExtractionCandidate{
		{Normalized: "a", Confidence: 0.9, RunAt: base, RunID: "run-1"},
		{Normalized: "b", Confidence: 0.9, RunAt: base.Add(time.Hour), RunID: "run-2"},
	})
	assert.Equal(t, "b", winner.Normalized)

	// Equal confidence and time: greatest run ID, so the order is total.
	winner = selectWinner([]model.ExtractionCandidate{
		{Normalized: "a", Confidence: 0.9, RunAt: base, RunID: "run-1"},
		{Normalized: "b", Confidence: 0.9, RunAt: base, RunID: "run-2"},
	})
	assert.Equal(t, "b", winner.Normalized)
}

func TestSelectRunsLatestCompletePerDoc(t *testing.T) {
	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	older := docRun("run-1", "doc-1", model.DocTypeCostEstimate, base)
	newer := docRun("run-2", "doc-1", model.DocTypeCostEstimate, base.Add(time.Hour))

	// A newer run that never completed does not displace the older one.
	incomplete := model.DocumentRun{
		ID: "run-3", ClaimID: "clm-1", DocID: "doc-1",
		DocType: model.DocTypeCostEstimate, Status: model.RunStatusRunning,
		CreatedAt: base.Add(2 * time.Hour),
	}

	selected := SelectRuns([]model.DocumentRun{older, newer, incomplete})
	require.Len(t, selected, 1)
	assert.Equal(t, "run-2", selected[0].ID)
}

func TestSelectRunsSortedByDocID(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	selected := SelectRuns([]model.DocumentRun{
		docRun("run-1", "doc-z", model.DocTypeServiceBook, at),
		docRun("run-2", "doc-a", model.DocTypeCostEstimate, at),
	})
	require.Len(t, selected, 2)
	assert.Equal(t, "doc-a", selected[0].DocID)
	assert.Equal(t, "doc-z", selected[1].DocID)
}

func TestAggregateMissingCriticalFacts(t *testing.T) {
	schemas := model.NewSchemaRegistry([]model.FactSpec{
		{Key: "odometer_km", DocTypes: []model.DocType{model.DocTypeCostEstimate}, Required: true},
		{Key: "loss_date", DocTypes: []model.DocType{model.DocTypeCostEstimate}, Required: true},
		{Key: "policy_number", DocTypes: []model.DocType{model.DocTypePolicy}, Required: true},
	})

	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cf, gate := aggregateRuns(t, schemas, docRun("run-1", "doc-1", model.DocTypeCostEstimate, at,
		model.ExtractedField{FactName: "odometer_km", Value: "74200", Confidence: 0.9}))

	// loss_date is required for cost estimates and absent; policy_number
	// is not, because no policy document was selected.
	assert.Equal(t, []string{"loss_date"}, cf.MissingCritical)
	assert.Equal(t, model.GateWarn, gate.Status)
}

func TestAggregateEmptyValueSkipped(t *testing.T) {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cf, _ := aggregateRuns(t, nil, docRun("run-1", "doc-1", model.DocTypeCostEstimate, at,
		model.ExtractedField{FactName: "odometer_km", Value: "  ", Confidence: 0.9},
		model.ExtractedField{FactName: "", Value: "x", Confidence: 0.9},
	))
	assert.Empty(t, cf.Facts)
}

func TestNewDefaultsGateThresholds(t *testing.T) {
	a := New(nil, nil, config.GateConfig{})

	assert.Equal(t, 2, a.gateCfg.MaxMissingCritical)
	assert.Equal(t, 2, a.gateCfg.MaxConflicts)
	assert.Equal(t, 256*1024, a.gateCfg.MaxArtifactBytes)

	// Without the config layer a single conflict degrades, it does not fail.
	gate := EvaluateGate(claimFacts(nil, 1), a.gateCfg)
	assert.Equal(t, model.GateWarn, gate.Status)
}
