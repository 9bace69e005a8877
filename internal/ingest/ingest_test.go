package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/store"
)

func testSchema(t *testing.T) *model.SchemaRegistry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	content := `
facts:
  - key: policy_number
    doc_types: [policy]
    data_type: string
    required: true
    validation: "^POL-"
  - key: odometer_km
    doc_types: [cost_estimate, service_history]
    data_type: number
    required: true
  - key: loss_date
    doc_types: [cost_estimate]
    data_type: date
    required: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := LoadSchema(path)
	require.NoError(t, err)
	return reg
}

func TestLoadSchema(t *testing.T) {
	reg := testSchema(t)

	spec := reg.ByKey("policy_number")
	require.NotNil(t, spec)
	assert.True(t, spec.Required)
	require.NotNil(t, spec.ValidationRegex)
	assert.True(t, spec.ValidationRegex.MatchString("POL-100"))

	assert.Nil(t, reg.ByKey("unknown"))

	critical := reg.CriticalFacts([]model.DocType{model.DocTypeCostEstimate})
	assert.ElementsMatch(t, []string{"odometer_km", "loss_date"}, critical)
}

func TestLoadSchemaRejectsUnknownDataType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
facts:
  - key: x
    data_type: decimal
`), 0o644))

	_, err := LoadSchema(path)
	assert.Error(t, err)
}

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	content := `{
  "doc_id": "doc-1",
  "doc_type": "cost_estimate",
  "fields": [
    {"fact_name": "odometer_km", "value": "74'200", "confidence": 0.95, "provenance": {"page": 1}}
  ],
  "line_items": [
    {"description": "Turbolader", "item_type": "parts", "total_price": 2200, "page": 2}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", artifact.DocID)
	assert.Equal(t, model.DocTypeCostEstimate, artifact.DocType)
	require.Len(t, artifact.Fields, 1)
	require.Len(t, artifact.LineItems, 1)
	assert.Equal(t, model.ItemParts, artifact.LineItems[0].Type)
}

func TestLoadArtifactMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadArtifact(path)
	assert.Error(t, err)
}

func TestValidateAcceptsWellFormedArtifact(t *testing.T) {
	in := New(nil, testSchema(t))

	issues := in.Validate(&model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocTypeCostEstimate,
		Fields: []model.ExtractedField{
			{FactName: "odometer_km", Value: "74'200", Confidence: 0.95},
			{FactName: "loss_date", Value: "2025-07-01", Confidence: 0.9},
		},
		LineItems: []model.LineItem{
			{Description: "Turbolader", Type: model.ItemParts, TotalPrice: 2200},
		},
	})
	assert.Empty(t, issues)
}

func TestValidateFindings(t *testing.T) {
	in := New(nil, testSchema(t))

	issues := in.Validate(&model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocType("invoice"),
		Fields: []model.ExtractedField{
			{FactName: "odometer_km", Value: "not-a-number", Confidence: 0.9},
			{FactName: "loss_date", Value: "yesterday", Confidence: 0.9},
			{FactName: "mystery_fact", Value: "x", Confidence: 0.9},
			{FactName: "policy_number", Value: "ABC-1", Confidence: 1.3},
		},
		LineItems: []model.LineItem{
			{Description: "", Type: model.ItemType("misc"), TotalPrice: -5},
		},
	})

	var messages []string
	for _, i := range issues {
		messages = append(messages, i.String())
	}
	assert.Len(t, issues, 9, "got: %v", messages)
}

func TestIngestRecordsCompletedRun(t *testing.T) {
	st := newIngestStore(t)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.CreateClaim(ctx, model.Claim{
		ID:           "clm-1",
		PolicyNumber: "POL-100",
		ReportedAt:   time.Now().UTC(),
	}))

	in := New(st, testSchema(t))
	run, err := in.Ingest(ctx, "clm-1", &model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocTypeCostEstimate,
		Fields: []model.ExtractedField{
			{FactName: "odometer_km", Value: "74'200", Confidence: 0.95},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	runs, err := st.ListDocumentRuns(ctx, "clm-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Artifact)
}

func TestIngestRejectsInvalidArtifactButKeepsfailedRun(t *testing.T) {
	st := newIngestStore(t)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.CreateClaim(ctx, model.Claim{ID: "clm-1", PolicyNumber: "POL-100", ReportedAt: time.Now().UTC()}))

	in := New(st, testSchema(t))
	_, err := in.Ingest(ctx, "clm-1", &model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocTypeCostEstimate,
		Fields: []model.ExtractedField{
			{FactName: "mystery_fact", Value: "x", Confidence: 0.9},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared fact key")

	// The attempt is still on record as a failed run.
	runs, listErr := st.ListDocumentRuns(ctx, "clm-1")
	require.NoError(t, listErr)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

func TestIngestUnknownClaim(t *testing.T) {
	st := newIngestStore(t)
	defer st.Close()

	in := New(st, nil)
	_, err := in.Ingest(context.Background(), "missing", &model.ExtractionArtifact{
		DocID:   "doc-1",
		DocType: model.DocTypeCostEstimate,
	})
	assert.Error(t, err)
}

func newIngestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}
