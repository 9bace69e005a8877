package screening

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avanta-group/claims-cli/internal/model"
)

// evaluateHardFails checks the unambiguous auto-reject conditions. Each
// condition needs positive evidence; a missing fact never triggers a hard
// fail, it only degrades the gate. Screening never auto-approves, so the
// absence of hard fails carries no approval meaning.
func evaluateHardFails(claim *model.Claim, cf *model.ClaimFacts, cov *model.CoverageAnalysisResult, policy *model.Policy) []model.HardFail {
	var fails []model.HardFail

	if hf := checkPolicyDates(claim, cf, policy); hf != nil {
		fails = append(fails, *hf)
	}
	if hf := checkMileageLimit(cf, policy); hf != nil {
		fails = append(fails, *hf)
	}
	if hf := checkPrimaryItem(cov); hf != nil {
		fails = append(fails, *hf)
	}
	return fails
}

// checkPolicyDates fails the claim when the loss date falls outside the
// policy's coverage window.
func checkPolicyDates(claim *model.Claim, cf *model.ClaimFacts, policy *model.Policy) *model.HardFail {
	loss := factDate(cf, model.FactLossDate)
	if loss.IsZero() {
		loss = claim.ReportedAt
	}
	if loss.IsZero() {
		return nil
	}

	if !policy.CoverageStart.IsZero() && loss.Before(policy.CoverageStart) {
		return &model.HardFail{
			Reason: model.HardFailPolicyDates,
			Detail: fmt.Sprintf("loss date %s before coverage start %s",
				loss.Format("2006-01-02"), policy.CoverageStart.Format("2006-01-02")),
		}
	}
	if !policy.CoverageEnd.IsZero() && loss.After(policy.CoverageEnd) {
		return &model.HardFail{
			Reason: model.HardFailPolicyDates,
			Detail: fmt.Sprintf("loss date %s after coverage end %s",
				loss.Format("2006-01-02"), policy.CoverageEnd.Format("2006-01-02")),
		}
	}
	return nil
}

// checkMileageLimit fails the claim when the reconciled odometer reading
// exceeds the policy's mileage limit.
func checkMileageLimit(cf *model.ClaimFacts, policy *model.Policy) *model.HardFail {
	if policy.MileageLimitKM <= 0 {
		return nil
	}
	km, ok := factInt(cf, model.FactOdometerKM)
	if !ok || km <= policy.MileageLimitKM {
		return nil
	}
	return &model.HardFail{
		Reason: model.HardFailMileageLimit,
		Detail: fmt.Sprintf("odometer %d km exceeds policy limit %d km", km, policy.MileageLimitKM),
	}
}

// checkPrimaryItem fails the claim when its primary repair item (the most
// expensive line item) is conclusively not covered. Conclusive means a
// deterministic tier decided at full confidence; a judgment verdict or a
// review routing is never grounds for auto-reject.
func checkPrimaryItem(cov *model.CoverageAnalysisResult) *model.HardFail {
	if cov == nil || len(cov.Items) == 0 {
		return nil
	}

	primary := cov.Items[0]
	for _, lc := range cov.Items[1:] {
		if lc.Item.TotalPrice > primary.Item.TotalPrice {
			primary = lc
		}
	}

	deterministic := primary.Method == model.MethodRule || primary.Method == model.MethodPartNumber
	if primary.Status == model.StatusNotCovered && deterministic && primary.Confidence >= 1.0 {
		return &model.HardFail{
			Reason: model.HardFailPrimaryItem,
			Detail: fmt.Sprintf("primary item %q not covered (%s)", primary.Item.Description, primary.Rationale),
		}
	}
	return nil
}

// factDate parses a reconciled date fact. Accepted layouts cover what the
// extraction collaborator emits.
func factDate(cf *model.ClaimFacts, name string) time.Time {
	if cf == nil {
		return time.Time{}
	}
	raw := cf.GetString(name)
	if raw == "" {
		if t, ok := cf.Get(name).(time.Time); ok {
			return t
		}
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02.01.2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t
		}
	}
	return time.Time{}
}

// factInt parses a reconciled numeric fact from its normalized form, which
// has group separators already stripped.
func factInt(cf *model.ClaimFacts, name string) (int, bool) {
	if cf == nil {
		return 0, false
	}
	f, ok := cf.Facts[name]
	if !ok {
		return 0, false
	}
	s := f.Selected.Normalized
	if s == "" {
		s = strings.TrimSpace(fmt.Sprintf("%v", f.Value))
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v), true
	}
	return 0, false
}

// factFloat parses a reconciled monetary fact from its normalized form.
func factFloat(cf *model.ClaimFacts, name string) (float64, bool) {
	if cf == nil {
		return 0, false
	}
	f, ok := cf.Facts[name]
	if !ok {
		return 0, false
	}
	s := f.Selected.Normalized
	if s == "" {
		s = strings.TrimSpace(fmt.Sprintf("%v", f.Value))
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	return 0, false
}
