// Package payout computes the final payout figure through a fixed
// arithmetic sequence: rate, cap, VAT, deductible, clamp. The order is
// contractual; each step is a named pure function over an immutable
// breakdown value so every intermediate survives for audit.
package payout

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/avanta-group/claims-cli/internal/model"
)

// Inputs are the covered gross amounts from coverage analysis plus the
// vehicle parameters that select the rate tier.
type Inputs struct {
	CoveredPartsGross float64
	CoveredLaborGross float64

	// Categories optionally splits the covered gross per matched category
	// so per-category coverage rates and caps apply. When empty the tier
	// rates apply to the totals directly.
	Categories []CategoryGross

	// ClaimTotal bounds the final payout when positive. A payout can
	// never exceed what the claim is worth.
	ClaimTotal float64

	VehicleAgeMonths int
	MileageKM        int
}

// CategoryGross carries one category's covered gross together with the
// policy's per-category overrides. Rate 0 means the tier rates apply;
// MaxCoverage 0 means the category is uncapped.
type CategoryGross struct {
	Category    string
	PartsGross  float64
	LaborGross  float64
	Rate        float64
	MaxCoverage float64
}

// Calculate runs the payout chain. Intermediates are carried at full
// precision; only terminal values (deductible, final payout) are rounded
// to the cent, half away from zero.
func Calculate(in Inputs, params model.PayoutParams) (*model.PayoutBreakdown, error) {
	if err := validate(in, params); err != nil {
		return nil, err
	}

	tier, err := selectRateTier(in, params.RateSchedule)
	if err != nil {
		return nil, err
	}

	b := model.PayoutBreakdown{
		CoveredPartsGross: in.CoveredPartsGross,
		CoveredLaborGross: in.CoveredLaborGross,
		ClaimTotal:        in.ClaimTotal,
		CreatedAt:         time.Now().UTC(),
	}

	b = applyRate(b, tier, in.Categories)
	b = applyCap(b, params.MaxCoverage)
	b = applyVAT(b, params)
	b = applyDeductible(b, params)
	b = finalize(b)

	if err := checkInvariants(b); err != nil {
		return nil, err
	}
	return &b, nil
}

func validate(in Inputs, params model.PayoutParams) error {
	switch {
	case in.CoveredPartsGross < 0 || in.CoveredLaborGross < 0:
		return eris.Errorf("payout: negative covered gross (parts %.2f, labor %.2f)",
			in.CoveredPartsGross, in.CoveredLaborGross)
	case params.MaxCoverage < 0:
		return eris.Errorf("payout: negative max coverage %.2f", params.MaxCoverage)
	case params.VATPercent < 0:
		return eris.Errorf("payout: negative VAT percent %.2f", params.VATPercent)
	case params.DeductiblePercent < 0 || params.DeductibleMinimum < 0:
		return eris.Errorf("payout: negative deductible parameters")
	case in.ClaimTotal < 0:
		return eris.Errorf("payout: negative claim total %.2f", in.ClaimTotal)
	}
	for _, cg := range in.Categories {
		switch {
		case cg.PartsGross < 0 || cg.LaborGross < 0:
			return eris.Errorf("payout: negative gross for category %s", cg.Category)
		case cg.Rate < 0 || cg.Rate > 1:
			return eris.Errorf("payout: category %s rate %.2f outside [0,1]", cg.Category, cg.Rate)
		case cg.MaxCoverage < 0:
			return eris.Errorf("payout: negative max coverage for category %s", cg.Category)
		}
	}
	return nil
}

// selectRateTier picks the single schedule row the vehicle falls under:
// the first tier whose age and mileage limits are not exceeded. Tiers are
// never averaged. A zero limit means the dimension is unbounded.
func selectRateTier(in Inputs, schedule []model.RateTier) (model.RateTier, error) {
	if len(schedule) == 0 {
		return model.RateTier{}, eris.New("payout: empty rate schedule")
	}
	for _, tier := range schedule {
		if tier.MaxVehicleAgeMonths > 0 && in.VehicleAgeMonths > tier.MaxVehicleAgeMonths {
			continue
		}
		if tier.MaxMileageKM > 0 && in.MileageKM > tier.MaxMileageKM {
			continue
		}
		if tier.PartsRate < 0 || tier.PartsRate > 1 || tier.LaborRate < 0 || tier.LaborRate > 1 {
			return model.RateTier{}, eris.Errorf(
				"payout: rate tier outside [0,1] (parts %.2f, labor %.2f)", tier.PartsRate, tier.LaborRate)
		}
		return tier, nil
	}
	return model.RateTier{}, eris.Errorf(
		"payout: no rate tier covers vehicle (age %d months, %d km)", in.VehicleAgeMonths, in.MileageKM)
}

// applyRate multiplies the gross covered amounts by the applicable rates,
// parts and labor separately, before the cap. A category that declares
// its own coverage rate replaces the tier rates for its amounts, and a
// per-category max coverage caps that category's rated amount.
func applyRate(b model.PayoutBreakdown, tier model.RateTier, cats []CategoryGross) model.PayoutBreakdown {
	b.AppliedPartsRate = tier.PartsRate
	b.AppliedLaborRate = tier.LaborRate

	if len(cats) == 0 {
		b.PreCapSubtotal = b.CoveredPartsGross*tier.PartsRate + b.CoveredLaborGross*tier.LaborRate
		return b
	}

	for _, cg := range cats {
		partsRate, laborRate := tier.PartsRate, tier.LaborRate
		if cg.Rate > 0 {
			partsRate, laborRate = cg.Rate, cg.Rate
		}
		cp := model.CategoryPayout{
			Category:    cg.Category,
			PartsGross:  cg.PartsGross,
			LaborGross:  cg.LaborGross,
			PartsRate:   partsRate,
			LaborRate:   laborRate,
			RatedAmount: cg.PartsGross*partsRate + cg.LaborGross*laborRate,
		}
		if cg.MaxCoverage > 0 && cp.RatedAmount > cg.MaxCoverage {
			cp.RatedAmount = cg.MaxCoverage
			cp.CapApplied = true
		}
		b.CategoryPayouts = append(b.CategoryPayouts, cp)
		b.PreCapSubtotal += cp.RatedAmount
	}
	return b
}

// applyCap limits the rate-applied subtotal. Capping the gross before the
// rate understates the payout whenever the gross sits near the cap, so the
// cap compares against PreCapSubtotal only.
func applyCap(b model.PayoutBreakdown, maxCoverage float64) model.PayoutBreakdown {
	b.CappedSubtotal = b.PreCapSubtotal
	if maxCoverage > 0 && b.PreCapSubtotal > maxCoverage {
		b.CappedSubtotal = maxCoverage
		b.CapApplied = true
	}
	return b
}

// applyVAT adds VAT on the capped subtotal. Commercial policyholders
// reclaim VAT themselves, so the branch skips it explicitly.
func applyVAT(b model.PayoutBreakdown, params model.PayoutParams) model.PayoutBreakdown {
	b.VATPercent = params.VATPercent
	if params.CommercialHolder {
		b.VATApplied = false
		b.SubtotalWithVAT = b.CappedSubtotal
		return b
	}
	b.VATApplied = true
	b.VATAmount = b.CappedSubtotal * params.VATPercent / 100
	b.SubtotalWithVAT = b.CappedSubtotal + b.VATAmount
	return b
}

// applyDeductible computes max(subtotal_with_vat × percent, minimum). The
// base is the post-VAT, post-cap subtotal, never an earlier intermediate.
func applyDeductible(b model.PayoutBreakdown, params model.PayoutParams) model.PayoutBreakdown {
	deductible := b.SubtotalWithVAT * params.DeductiblePercent / 100
	if deductible < params.DeductibleMinimum {
		deductible = params.DeductibleMinimum
	}
	b.DeductibleAmount = deductible
	b.FinalPayout = b.SubtotalWithVAT - deductible
	return b
}

// finalize clamps the payout between zero and the claim total and rounds
// the terminal values to the cent. VAT on a high-rate tier can push the
// subtotal past the claimed amount; the claim total is the ceiling.
func finalize(b model.PayoutBreakdown) model.PayoutBreakdown {
	if b.FinalPayout < 0 {
		b.FinalPayout = 0
	}
	if b.ClaimTotal > 0 && b.FinalPayout > b.ClaimTotal {
		b.FinalPayout = b.ClaimTotal
		b.ClampedToClaimTotal = true
	}
	b.DeductibleAmount = roundCent(b.DeductibleAmount)
	b.FinalPayout = roundCent(b.FinalPayout)
	return b
}

func checkInvariants(b model.PayoutBreakdown) error {
	switch {
	case b.FinalPayout < 0:
		return eris.Errorf("payout: negative final payout %.2f", b.FinalPayout)
	case b.CappedSubtotal > b.PreCapSubtotal+1e-9:
		return eris.Errorf("payout: capped subtotal %.2f exceeds pre-cap %.2f",
			b.CappedSubtotal, b.PreCapSubtotal)
	case b.SubtotalWithVAT+1e-9 < b.CappedSubtotal:
		return eris.Errorf("payout: subtotal with VAT %.2f below capped subtotal %.2f",
			b.SubtotalWithVAT, b.CappedSubtotal)
	case b.ClaimTotal > 0 && b.FinalPayout > b.ClaimTotal+1e-9:
		return eris.Errorf("payout: final payout %.2f exceeds claim total %.2f",
			b.FinalPayout, b.ClaimTotal)
	}
	return nil
}

// roundCent rounds half away from zero to two decimals.
func roundCent(v float64) float64 {
	return math.Round(v*100) / 100
}
