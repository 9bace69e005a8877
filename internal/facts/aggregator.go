// Package facts merges per-document extraction candidates into one
// reconciled fact set for a claim, detects conflicts between sources, and
// grades the result with an advisory gate.
package facts

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/config"
	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/store"
)

// Aggregator builds the reconciliation artifact for a claim from its
// document extraction runs. It performs no external calls and has no side
// effects beyond the returned artifacts.
type Aggregator struct {
	store   store.Store
	schemas *model.SchemaRegistry
	gateCfg config.GateConfig

	// CriticalExtras are claim-level critical facts added on top of the
	// schema-declared required facts.
	CriticalExtras []string
}

// New creates an Aggregator. Zero gate thresholds fall back to safe
// defaults so a missing config layer never turns the first conflict into
// a failing gate.
func New(st store.Store, schemas *model.SchemaRegistry, gateCfg config.GateConfig) *Aggregator {
	if gateCfg.MaxMissingCritical <= 0 {
		gateCfg.MaxMissingCritical = 2
	}
	if gateCfg.MaxConflicts <= 0 {
		gateCfg.MaxConflicts = 2
	}
	if gateCfg.MaxArtifactBytes <= 0 {
		gateCfg.MaxArtifactBytes = 256 * 1024
	}
	return &Aggregator{
		store:   st,
		schemas: schemas,
		gateCfg: gateCfg,
	}
}

// Aggregate reconciles all extraction candidates for the claim and grades
// the result. The same candidate set always yields the same selection: the
// winner is the highest-confidence candidate, ties broken by most recent
// run, then by run ID.
func (a *Aggregator) Aggregate(ctx context.Context, claimID string) (*model.ClaimFacts, model.ReconciliationGate, error) {
	runs, err := a.store.ListDocumentRuns(ctx, claimID)
	if err != nil {
		return nil, model.ReconciliationGate{}, eris.Wrapf(err, "facts: list runs for %s", claimID)
	}

	selected := SelectRuns(runs)
	candidates := collectCandidates(selected)

	cf := &model.ClaimFacts{
		ClaimID:      claimID,
		Facts:        make(map[string]model.ClaimFact, len(candidates)),
		SelectedRuns: make(map[string]string, len(selected)),
		CreatedAt:    time.Now().UTC(),
	}
	for _, run := range selected {
		cf.SelectedRuns[run.DocID] = run.ID
	}

	// Deterministic iteration order for stable logs and artifacts.
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cands := candidates[name]
		winner := selectWinner(cands)
		conflict := detectConflict(name, cands)

		fact := model.ClaimFact{
			Name:         name,
			Value:        winner.Value,
			Selected:     winner,
			Alternatives: cands,
			HasConflict:  conflict != nil,
		}
		cf.Facts[name] = fact

		if conflict != nil {
			cf.Conflicts = append(cf.Conflicts, *conflict)
			zap.L().Warn("facts: conflict detected",
				zap.String("claim", claimID),
				zap.String("fact", name),
				zap.Strings("values", conflict.DistinctValues),
				zap.String("selected", winner.Normalized),
			)
		}
	}

	cf.MissingCritical = a.missingCritical(selected, cf)

	gate := EvaluateGate(cf, a.gateCfg)
	zap.L().Info("facts: aggregation complete",
		zap.String("claim", claimID),
		zap.Int("facts", len(cf.Facts)),
		zap.Int("conflicts", len(cf.Conflicts)),
		zap.Int("missing_critical", len(cf.MissingCritical)),
		zap.String("gate", string(gate.Status)),
	)

	return cf, gate, nil
}

// LineItems returns the line items of the claim's selected runs, document
// by document in run order, with the originating doc ID stamped on each
// item. Repair-context carry-forward happens downstream, per document.
func (a *Aggregator) LineItems(ctx context.Context, claimID string) ([]model.LineItem, error) {
	runs, err := a.store.ListDocumentRuns(ctx, claimID)
	if err != nil {
		return nil, eris.Wrapf(err, "facts: list runs for %s", claimID)
	}

	var items []model.LineItem
	for _, run := range SelectRuns(runs) {
		for _, it := range run.Artifact.LineItems {
			if it.DocID == "" {
				it.DocID = run.DocID
			}
			items = append(items, it)
		}
	}
	return items, nil
}

// SelectRuns picks, for each source document, the most recent run that is
// complete and carries an extraction artifact. Incomplete runs are ignored
// even when newer. Output is sorted by doc ID for determinism.
func SelectRuns(runs []model.DocumentRun) []model.DocumentRun {
	best := make(map[string]model.DocumentRun)
	for _, r := range runs {
		if r.Status != model.RunStatusComplete || r.Artifact == nil {
			continue
		}
		cur, ok := best[r.DocID]
		if !ok || r.CreatedAt.After(cur.CreatedAt) ||
			(r.CreatedAt.Equal(cur.CreatedAt) && r.ID > cur.ID) {
			best[r.DocID] = r
		}
	}

	docIDs := make([]string, 0, len(best))
	for id := range best {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	selected := make([]model.DocumentRun, 0, len(best))
	for _, id := range docIDs {
		selected = append(selected, best[id])
	}
	return selected
}

// collectCandidates gathers every extracted field with a non-empty value
// across the selected runs, keyed by fact name. Nothing is deduplicated:
// the full candidate list is the audit trail.
func collectCandidates(selected []model.DocumentRun) map[string][]model.ExtractionCandidate {
	out := make(map[string][]model.ExtractionCandidate)
	for _, run := range selected {
		var runAt time.Time
		if run.CompletedAt != nil {
			runAt = *run.CompletedAt
		} else {
			runAt = run.CreatedAt
		}
		for _, f := range run.Artifact.Fields {
			if f.FactName == "" || f.Value == nil {
				continue
			}
			normalized := f.Normalized
			if normalized == "" {
				normalized = NormalizeValue(f.Value)
			}
			if normalized == "" {
				continue
			}
			out[f.FactName] = append(out[f.FactName], model.ExtractionCandidate{
				FactName:   f.FactName,
				Value:      f.Value,
				Normalized: normalized,
				Confidence: f.Confidence,
				DocID:      run.DocID,
				DocType:    run.DocType,
				RunID:      run.ID,
				RunAt:      runAt,
				Provenance: f.Provenance,
			})
		}
	}
	return out
}

// selectWinner returns the winning candidate: highest confidence, ties
// broken by most recent run, then lexicographically greatest run ID so the
// ordering is total and re-runs are idempotent.
func selectWinner(cands []model.ExtractionCandidate) model.ExtractionCandidate {
	winner := cands[0]
	for _, c := range cands[1:] {
		switch {
		case c.Confidence > winner.Confidence:
			winner = c
		case c.Confidence == winner.Confidence && c.RunAt.After(winner.RunAt):
			winner = c
		case c.Confidence == winner.Confidence && c.RunAt.Equal(winner.RunAt) && c.RunID > winner.RunID:
			winner = c
		}
	}
	return winner
}

// detectConflict returns a FactConflict when candidates for the fact
// normalize to two or more distinct values, else nil.
func detectConflict(name string, cands []model.ExtractionCandidate) *model.FactConflict {
	sources := make(map[string][]string)
	for _, c := range cands {
		sources[c.Normalized] = append(sources[c.Normalized], c.DocID+"/"+c.RunID)
	}
	if len(sources) < 2 {
		return nil
	}

	values := make([]string, 0, len(sources))
	for v := range sources {
		values = append(values, v)
	}
	sort.Strings(values)

	return &model.FactConflict{
		FactName:        name,
		DistinctValues:  values,
		SourcesPerValue: sources,
	}
}

// missingCritical lists critical facts absent from the reconciled set.
// Critical facts are the union of required facts for the selected runs'
// document types plus claim-level extras. Missing facts are recorded,
// never synthesized.
func (a *Aggregator) missingCritical(selected []model.DocumentRun, cf *model.ClaimFacts) []string {
	if a.schemas == nil {
		return nil
	}
	docTypes := make([]model.DocType, 0, len(selected))
	for _, r := range selected {
		docTypes = append(docTypes, r.DocType)
	}

	var missing []string
	for _, key := range a.schemas.CriticalFacts(docTypes, a.CriticalExtras...) {
		if _, ok := cf.Facts[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
