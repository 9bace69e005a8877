package facts

import (
	"encoding/json"

	"github.com/avanta-group/claims-cli/internal/config"
	"github.com/avanta-group/claims-cli/internal/model"
)

// EvaluateGate grades a reconciliation artifact. The gate is advisory: it
// tells downstream consumers to reduce confidence, it never halts the
// pipeline.
//
// fail: missing-critical count or conflict count over the configured
// maximum, or the serialized artifact over the size ceiling.
// warn: any of those nonzero but under the fail threshold.
// pass: otherwise.
func EvaluateGate(cf *model.ClaimFacts, cfg config.GateConfig) model.ReconciliationGate {
	gate := model.ReconciliationGate{
		Status:               model.GatePass,
		MissingCriticalFacts: cf.MissingCritical,
		ConflictCount:        len(cf.Conflicts),
		ProvenanceCoverage:   provenanceCoverage(cf),
	}

	if data, err := json.Marshal(cf); err == nil {
		gate.EstimatedSizeBytes = len(data)
	}

	missing := len(cf.MissingCritical)
	switch {
	case missing > cfg.MaxMissingCritical,
		gate.ConflictCount > cfg.MaxConflicts,
		cfg.MaxArtifactBytes > 0 && gate.EstimatedSizeBytes > cfg.MaxArtifactBytes:
		gate.Status = model.GateFail
	case missing > 0 || gate.ConflictCount > 0:
		gate.Status = model.GateWarn
	}

	return gate
}

// provenanceCoverage is the share of selected fact values that carry a
// usable provenance reference (a page or a quote).
func provenanceCoverage(cf *model.ClaimFacts) float64 {
	if len(cf.Facts) == 0 {
		return 0
	}
	covered := 0
	for _, f := range cf.Facts {
		p := f.Selected.Provenance
		if p.Page > 0 || p.Quote != "" {
			covered++
		}
	}
	return float64(covered) / float64(len(cf.Facts))
}
