package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/store"
)

// Issue is one validation finding on an artifact.
type Issue struct {
	FactName string `json:"fact_name,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	if i.FactName == "" {
		return i.Message
	}
	return i.FactName + ": " + i.Message
}

// Ingestor validates extraction artifacts and records them as document
// runs.
type Ingestor struct {
	store   store.Store
	schemas *model.SchemaRegistry
}

// New creates an Ingestor. schemas may be nil to skip fact validation.
func New(st store.Store, schemas *model.SchemaRegistry) *Ingestor {
	return &Ingestor{store: st, schemas: schemas}
}

// LoadArtifact reads an extraction artifact from a JSON file.
func LoadArtifact(path string) (*model.ExtractionArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read artifact %s", path)
	}

	var artifact model.ExtractionArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse artifact %s", path)
	}
	return &artifact, nil
}

// Ingest validates the artifact and persists it as a completed document
// run for the claim. Validation failure records a failed run so the
// attempt is auditable.
func (in *Ingestor) Ingest(ctx context.Context, claimID string, artifact *model.ExtractionArtifact) (*model.DocumentRun, error) {
	if artifact.DocID == "" {
		return nil, eris.New("ingest: artifact has no doc ID")
	}

	if _, err := in.store.GetClaim(ctx, claimID); err != nil {
		return nil, eris.Wrapf(err, "ingest: claim %s", claimID)
	}

	run, err := in.store.CreateDocumentRun(ctx, claimID, artifact.DocID, artifact.DocType)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: create run for %s", claimID)
	}

	if issues := in.Validate(artifact); len(issues) > 0 {
		if failErr := in.store.FailDocumentRun(ctx, run.ID); failErr != nil {
			zap.L().Error("ingest: could not mark run failed",
				zap.String("run", run.ID), zap.Error(failErr))
		}
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		return nil, eris.Errorf("ingest: artifact %s rejected: %s",
			artifact.DocID, strings.Join(msgs, "; "))
	}

	if err := in.store.CompleteDocumentRun(ctx, run.ID, artifact); err != nil {
		return nil, eris.Wrapf(err, "ingest: complete run %s", run.ID)
	}

	zap.L().Info("ingest: artifact recorded",
		zap.String("claim", claimID),
		zap.String("doc", artifact.DocID),
		zap.String("doc_type", string(artifact.DocType)),
		zap.Int("fields", len(artifact.Fields)),
		zap.Int("line_items", len(artifact.LineItems)),
	)

	now := time.Now().UTC()
	run.Status = model.RunStatusComplete
	run.Artifact = artifact
	run.CompletedAt = &now
	return run, nil
}

// Validate checks the artifact against the fact schema and structural
// rules. A nil result means the artifact is acceptable.
func (in *Ingestor) Validate(artifact *model.ExtractionArtifact) []Issue {
	var issues []Issue

	switch artifact.DocType {
	case model.DocTypePolicy, model.DocTypeCostEstimate, model.DocTypeServiceBook, model.DocTypeRegistration:
	default:
		issues = append(issues, Issue{Message: fmt.Sprintf("unknown doc type %q", artifact.DocType)})
	}

	for _, f := range artifact.Fields {
		if f.FactName == "" {
			issues = append(issues, Issue{Message: "field without fact name"})
			continue
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			issues = append(issues, Issue{FactName: f.FactName,
				Message: fmt.Sprintf("confidence %.2f outside [0,1]", f.Confidence)})
		}
		issues = append(issues, in.validateAgainstSchema(f)...)
	}

	for i, item := range artifact.LineItems {
		if item.Description == "" {
			issues = append(issues, Issue{Message: fmt.Sprintf("line item %d without description", i)})
		}
		if item.TotalPrice < 0 {
			issues = append(issues, Issue{Message: fmt.Sprintf("line item %d with negative price", i)})
		}
		switch item.Type {
		case model.ItemParts, model.ItemLabor, model.ItemFee:
		default:
			issues = append(issues, Issue{Message: fmt.Sprintf("line item %d with unknown type %q", i, item.Type)})
		}
	}

	return issues
}

func (in *Ingestor) validateAgainstSchema(f model.ExtractedField) []Issue {
	if in.schemas == nil {
		return nil
	}

	spec := in.schemas.ByKey(f.FactName)
	if spec == nil {
		return []Issue{{FactName: f.FactName, Message: "undeclared fact key"}}
	}

	var issues []Issue
	raw := strings.TrimSpace(fmt.Sprintf("%v", f.Value))

	switch spec.DataType {
	case "number":
		if _, err := strconv.ParseFloat(normalizeNumeric(raw), 64); err != nil {
			issues = append(issues, Issue{FactName: f.FactName,
				Message: fmt.Sprintf("value %q is not a number", raw)})
		}
	case "date":
		if parseDate(raw).IsZero() {
			issues = append(issues, Issue{FactName: f.FactName,
				Message: fmt.Sprintf("value %q is not a date", raw)})
		}
	case "bool":
		if _, err := strconv.ParseBool(raw); err != nil {
			issues = append(issues, Issue{FactName: f.FactName,
				Message: fmt.Sprintf("value %q is not a bool", raw)})
		}
	}

	if spec.ValidationRegex != nil && !spec.ValidationRegex.MatchString(raw) {
		issues = append(issues, Issue{FactName: f.FactName,
			Message: fmt.Sprintf("value %q fails validation pattern", raw)})
	}

	return issues
}

// normalizeNumeric strips the group separators Swiss documents use.
func normalizeNumeric(s string) string {
	return strings.NewReplacer("'", "", "’", "", ",", "", " ", "").Replace(s)
}

func parseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
