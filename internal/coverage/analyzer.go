package coverage

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avanta-group/claims-cli/internal/config"
	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/pkg/judgment"
)

// Analyzer runs the cascade over a claim's line items. Tiers 1 and 2 are
// deterministic and run inline; tier 3 calls the judgment collaborator in
// parallel, bounded by the configured concurrency. Given the same inputs
// and tables, tiers 1 and 2 always produce the same decisions.
type Analyzer struct {
	rules    *RuleMatcher
	keywords *KeywordMatcher
	judge    judgment.Matcher
	cfg      config.CoverageConfig
}

// NewAnalyzer builds the cascade. judge may be nil, in which case every
// item the deterministic tiers cannot resolve is marked review_needed.
func NewAnalyzer(tables *Tables, judge judgment.Matcher, cfg config.CoverageConfig) *Analyzer {
	if cfg.MinConfidenceForCoverage <= 0 {
		cfg.MinConfidenceForCoverage = 0.60
	}
	if cfg.ReviewThresholdNotCovered <= 0 {
		cfg.ReviewThresholdNotCovered = 0.40
	}
	if cfg.JudgmentConcurrency <= 0 {
		cfg.JudgmentConcurrency = 4
	}
	if cfg.JudgmentTimeoutSecs <= 0 {
		cfg.JudgmentTimeoutSecs = 30
	}
	return &Analyzer{
		rules:    NewRuleMatcher(tables),
		keywords: NewKeywordMatcher(tables),
		judge:    judge,
		cfg:      cfg,
	}
}

// Analyze classifies every line item and aggregates category and claim
// totals. Item order in the result matches input order regardless of how
// tier-3 calls interleave.
func (a *Analyzer) Analyze(ctx context.Context, claimID string, items []model.LineItem, policy *model.Policy) (*model.CoverageAnalysisResult, error) {
	items = CarryRepairContext(items)

	results := make([]model.LineItemCoverage, len(items))
	var unresolved []int

	for i, item := range items {
		if d := a.rules.Match(item); d != nil {
			results[i] = applyDecision(item, d)
			continue
		}
		if d := a.keywords.Match(item); d != nil && d.Confidence >= a.cfg.MinConfidenceForCoverage {
			results[i] = applyDecision(item, d)
			continue
		}
		// Weak or absent keyword hit: defer to the judgment tier.
		unresolved = append(unresolved, i)
	}

	if len(unresolved) > 0 {
		a.judgeItems(ctx, items, unresolved, policy, results)
	}

	result := aggregate(claimID, results)

	zap.L().Info("coverage: cascade complete",
		zap.String("claim_id", claimID),
		zap.Int("items", len(items)),
		zap.Int("judged", len(unresolved)),
		zap.Float64("covered_total", result.CoveredTotal),
		zap.Float64("review_needed_total", result.ReviewNeededTotal),
	)

	return result, nil
}

// judgeItems resolves the given item indexes through the collaborator. A
// failed or timed-out call degrades the item to review_needed; it never
// fails the claim.
func (a *Analyzer) judgeItems(ctx context.Context, items []model.LineItem, indexes []int, policy *model.Policy, results []model.LineItemCoverage) {
	categories := policy.CategoryNames()
	timeout := time.Duration(a.cfg.JudgmentTimeoutSecs) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.JudgmentConcurrency)

	for _, idx := range indexes {
		g.Go(func() error {
			item := items[idx]
			results[idx] = a.judgeOne(gctx, item, categories, timeout)
			return nil
		})
	}

	// Workers never return errors; degraded items are recorded in place.
	_ = g.Wait()
}

func (a *Analyzer) judgeOne(ctx context.Context, item model.LineItem, categories []string, timeout time.Duration) model.LineItemCoverage {
	if a.judge == nil {
		return reviewNeeded(item, "no judgment collaborator configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.judge.MatchItem(callCtx, judgment.Request{
		Description:   item.Description,
		RepairContext: item.RepairContext,
		ItemType:      string(item.Type),
		Categories:    categories,
	})
	if err != nil {
		zap.L().Warn("coverage: judgment call failed, item degraded to review",
			zap.String("description", item.Description),
			zap.Error(err),
		)
		return reviewNeeded(item, "judgment unavailable: "+err.Error())
	}

	// Acceptance is asymmetric: a covered verdict needs more confidence
	// than a not-covered one, so doubt costs the insurer review effort
	// rather than an unjustified payout.
	switch {
	case resp.Covered && resp.Confidence >= a.cfg.MinConfidenceForCoverage:
		return applyDecision(item, &Decision{
			Status:     model.StatusCovered,
			Category:   resp.Category,
			Method:     model.MethodJudgment,
			Confidence: resp.Confidence,
			Rationale:  resp.Rationale,
		})
	case !resp.Covered && resp.Confidence >= a.cfg.ReviewThresholdNotCovered:
		return applyDecision(item, &Decision{
			Status:     model.StatusNotCovered,
			Category:   resp.Category,
			Method:     model.MethodJudgment,
			Confidence: resp.Confidence,
			Rationale:  resp.Rationale,
		})
	default:
		lc := reviewNeeded(item, resp.Rationale)
		lc.MatchedCategory = resp.Category
		lc.Confidence = resp.Confidence
		return lc
	}
}

// applyDecision converts a matcher decision into the per-item result,
// splitting the item price so CoveredAmount+NotCoveredAmount always equals
// the item total.
func applyDecision(item model.LineItem, d *Decision) model.LineItemCoverage {
	lc := model.LineItemCoverage{
		Item:            item,
		Status:          d.Status,
		MatchedCategory: d.Category,
		Method:          d.Method,
		Confidence:      d.Confidence,
		Rationale:       d.Rationale,
	}
	if d.Status == model.StatusCovered {
		lc.CoveredAmount = item.TotalPrice
	} else {
		lc.NotCoveredAmount = item.TotalPrice
	}
	return lc
}

func reviewNeeded(item model.LineItem, rationale string) model.LineItemCoverage {
	return model.LineItemCoverage{
		Item:             item,
		Status:           model.StatusReviewNeeded,
		Method:           model.MethodJudgment,
		Rationale:        rationale,
		NotCoveredAmount: item.TotalPrice,
	}
}

func aggregate(claimID string, results []model.LineItemCoverage) *model.CoverageAnalysisResult {
	out := &model.CoverageAnalysisResult{
		ClaimID:    claimID,
		Items:      results,
		ByCategory: make(map[string]model.CategoryTotals),
		CreatedAt:  time.Now().UTC(),
	}

	for _, lc := range results {
		out.ClaimTotal += lc.Item.TotalPrice
		out.CoveredTotal += lc.CoveredAmount
		out.NotCoveredTotal += lc.NotCoveredAmount
		if lc.Status == model.StatusReviewNeeded {
			out.ReviewNeededTotal += lc.Item.TotalPrice
		}

		if lc.Status == model.StatusCovered {
			// Fees ride with parts for rate purposes.
			if lc.Item.Type == model.ItemLabor {
				out.CoveredLaborGross += lc.CoveredAmount
			} else {
				out.CoveredPartsGross += lc.CoveredAmount
			}
		}

		if lc.MatchedCategory == "" {
			continue
		}
		ct := out.ByCategory[lc.MatchedCategory]
		ct.Category = lc.MatchedCategory
		ct.ItemCount++
		ct.CoveredAmount += lc.CoveredAmount
		ct.NotCoveredAmount += lc.NotCoveredAmount
		if lc.Status == model.StatusCovered {
			if lc.Item.Type == model.ItemLabor {
				ct.CoveredLabor += lc.CoveredAmount
			} else {
				ct.CoveredParts += lc.CoveredAmount
			}
		}
		out.ByCategory[lc.MatchedCategory] = ct
	}

	return out
}
