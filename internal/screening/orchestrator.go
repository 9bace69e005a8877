// Package screening composes fact reconciliation, coverage analysis, and
// payout calculation into one screening run per claim. Every run writes a
// new immutable result; re-running a claim never edits history, it only
// moves the latest pointer.
package screening

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/config"
	"github.com/avanta-group/claims-cli/internal/coverage"
	"github.com/avanta-group/claims-cli/internal/facts"
	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/payout"
	"github.com/avanta-group/claims-cli/internal/store"
)

// Orchestrator runs the screening pipeline for single claims.
type Orchestrator struct {
	store    store.Store
	agg      *facts.Aggregator
	analyzer *coverage.Analyzer
	policy   *model.Policy
	cfg      config.ScreeningConfig
}

// New wires the pipeline stages. The policy is the versioned configuration
// every screened claim is evaluated against.
func New(st store.Store, agg *facts.Aggregator, analyzer *coverage.Analyzer, policy *model.Policy, cfg config.ScreeningConfig) *Orchestrator {
	if cfg.MaterialityThreshold <= 0 {
		cfg.MaterialityThreshold = 0.05
	}
	return &Orchestrator{
		store:    st,
		agg:      agg,
		analyzer: analyzer,
		policy:   policy,
		cfg:      cfg,
	}
}

// Screen executes the full pipeline for a claim and persists the result as
// a new screening run. Recoverable conditions (missing facts, conflicts,
// ambiguous items) degrade the gate or route items to review; only
// corrupted inputs and arithmetic contract violations fail the run.
func (o *Orchestrator) Screen(ctx context.Context, claimID string) (*model.ScreeningRun, error) {
	claim, err := o.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, eris.Wrapf(err, "screening: load claim %s", claimID)
	}

	run, err := o.store.CreateScreeningRun(ctx, claimID)
	if err != nil {
		return nil, eris.Wrapf(err, "screening: create run for %s", claimID)
	}

	result, err := o.evaluate(ctx, claim, run.ID)
	if err != nil {
		if failErr := o.store.FailScreeningRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("screening: could not mark run failed",
				zap.String("run", run.ID), zap.Error(failErr))
		}
		return nil, err
	}

	if err := o.store.CompleteScreeningRun(ctx, run.ID, result); err != nil {
		return nil, eris.Wrapf(err, "screening: persist run %s", run.ID)
	}

	zap.L().Info("screening: run complete",
		zap.String("claim", claimID),
		zap.String("run", run.ID),
		zap.String("gate", string(result.Gate.Status)),
		zap.Float64("final_payout", result.Payout.FinalPayout),
		zap.Bool("auto_reject", result.AutoReject),
		zap.Bool("materiality_flag", result.MaterialityFlag),
	)

	return o.store.GetScreeningRun(ctx, run.ID)
}

func (o *Orchestrator) evaluate(ctx context.Context, claim *model.Claim, runID string) (*model.ScreeningResult, error) {
	claimFacts, gate, err := o.agg.Aggregate(ctx, claim.ID)
	if err != nil {
		return nil, err
	}

	items, err := o.agg.LineItems(ctx, claim.ID)
	if err != nil {
		return nil, err
	}

	coverageResult, err := o.analyzer.Analyze(ctx, claim.ID, items, o.policy)
	if err != nil {
		return nil, err
	}

	vehicle := vehicleProfile(claim, claimFacts, o.policy)
	breakdown, err := payout.Calculate(payout.Inputs{
		CoveredPartsGross: coverageResult.CoveredPartsGross,
		CoveredLaborGross: coverageResult.CoveredLaborGross,
		Categories:        categoryInputs(coverageResult, o.policy),
		ClaimTotal:        coverageResult.ClaimTotal,
		VehicleAgeMonths:  vehicle.ageMonths,
		MileageKM:         vehicle.mileageKM,
	}, o.policy.Payout)
	if err != nil {
		return nil, eris.Wrapf(err, "screening: payout for %s", claim.ID)
	}

	result := &model.ScreeningResult{
		RunID:     runID,
		ClaimID:   claim.ID,
		Facts:     claimFacts,
		Gate:      gate,
		Coverage:  coverageResult,
		Payout:    breakdown,
		Policy:    o.policy.Version,
		HardFails: evaluateHardFails(claim, claimFacts, coverageResult, o.policy),
		Warnings:  consistencyWarnings(claim, claimFacts, coverageResult.ClaimTotal),
		CreatedAt: time.Now().UTC(),
	}
	result.AutoReject = len(result.HardFails) > 0

	for _, w := range result.Warnings {
		zap.L().Warn("screening: consistency check",
			zap.String("claim", claim.ID),
			zap.String("detail", w),
		)
	}

	// Materiality guard: a claim whose covered share is negligible must be
	// escalated, never approved off the back of one small covered item.
	if coverageResult.ClaimTotal > 0 {
		result.CoveredShare = coverageResult.CoveredTotal / coverageResult.ClaimTotal
	}
	if result.CoveredShare < o.cfg.MaterialityThreshold {
		result.MaterialityFlag = true
	}

	return result, nil
}

// categoryInputs splits the covered gross per matched category and
// attaches the policy's per-category rate and cap, resolving table
// category names through the policy's synonyms. Ordered by name so the
// breakdown is deterministic.
func categoryInputs(cov *model.CoverageAnalysisResult, policy *model.Policy) []payout.CategoryGross {
	names := make([]string, 0, len(cov.ByCategory))
	for name := range cov.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	var cats []payout.CategoryGross
	for _, name := range names {
		ct := cov.ByCategory[name]
		if ct.CoveredParts+ct.CoveredLabor <= 0 {
			continue
		}
		cg := payout.CategoryGross{
			Category:   name,
			PartsGross: ct.CoveredParts,
			LaborGross: ct.CoveredLabor,
		}
		if cat := policy.Category(name); cat != nil {
			cg.Rate = cat.CoverageRate
			cg.MaxCoverage = cat.MaxCoverage
		}
		cats = append(cats, cg)
	}
	return cats
}

// consistencyWarnings cross-checks reconciled identity facts against the
// claim record and the summed line items. Mismatches never block the run,
// they are surfaced for the reviewer.
func consistencyWarnings(claim *model.Claim, cf *model.ClaimFacts, claimTotal float64) []string {
	var warns []string

	if pn := strings.TrimSpace(cf.GetString(model.FactPolicyNumber)); pn != "" &&
		!strings.EqualFold(pn, claim.PolicyNumber) {
		warns = append(warns, fmt.Sprintf(
			"policy number %q in documents differs from claim record %q", pn, claim.PolicyNumber))
	}

	if vin := strings.TrimSpace(cf.GetString(model.FactVIN)); vin != "" && claim.VehicleVIN != "" &&
		!strings.EqualFold(vin, claim.VehicleVIN) {
		warns = append(warns, fmt.Sprintf(
			"VIN %q in documents differs from claim record %q", vin, claim.VehicleVIN))
	}

	// Declared totals can legitimately differ from the line item sum by
	// rounding or VAT treatment; warn only on material divergence.
	if declared, ok := factFloat(cf, model.FactClaimTotal); ok && declared > 0 && claimTotal > 0 {
		if diff := math.Abs(declared - claimTotal); diff > 0.01*declared {
			warns = append(warns, fmt.Sprintf(
				"declared claim total %.2f differs from line item sum %.2f", declared, claimTotal))
		}
	}
	return warns
}

// vehicleProfile derives the rate-tier inputs from reconciled facts,
// falling back to policy data where a fact is absent.
type profile struct {
	ageMonths int
	mileageKM int
}

func vehicleProfile(claim *model.Claim, cf *model.ClaimFacts, policy *model.Policy) profile {
	var p profile

	firstReg := factDate(cf, model.FactFirstRegistration)
	if firstReg.IsZero() {
		firstReg = policy.FirstRegistration
	}
	ref := factDate(cf, model.FactLossDate)
	if ref.IsZero() {
		ref = claim.ReportedAt
	}
	if !firstReg.IsZero() && ref.After(firstReg) {
		p.ageMonths = monthsBetween(firstReg, ref)
	}

	if km, ok := factInt(cf, model.FactOdometerKM); ok {
		p.mileageKM = km
	}
	return p
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
