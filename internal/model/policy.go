package model

import (
	"strings"
	"time"
)

// RateTier is one row of a policy's age/mileage coverage-rate schedule.
// A vehicle matches the first tier whose limits it does not exceed; exactly
// one tier applies to a claim, never an average across tiers.
type RateTier struct {
	MaxVehicleAgeMonths int     `yaml:"max_vehicle_age_months" json:"max_vehicle_age_months"`
	MaxMileageKM        int     `yaml:"max_mileage_km" json:"max_mileage_km"`
	PartsRate           float64 `yaml:"parts_rate" json:"parts_rate"`
	LaborRate           float64 `yaml:"labor_rate" json:"labor_rate"`
}

// CoveredCategory is a policy-defined category of covered repairs.
type CoveredCategory struct {
	Name         string   `yaml:"name" json:"name"`
	CoverageRate float64  `yaml:"coverage_rate" json:"coverage_rate"`
	MaxCoverage  float64  `yaml:"max_coverage,omitempty" json:"max_coverage,omitempty"` // 0 = uncapped
	Synonyms     []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
}

// PayoutParams holds the policy parameters the payout calculator applies,
// in its fixed order: rate schedule, cap, VAT treatment, deductible rule.
type PayoutParams struct {
	RateSchedule      []RateTier `yaml:"rate_schedule" json:"rate_schedule"`
	MaxCoverage       float64    `yaml:"max_coverage" json:"max_coverage"` // 0 = uncapped
	VATPercent        float64    `yaml:"vat_percent" json:"vat_percent"`
	DeductiblePercent float64    `yaml:"deductible_percent" json:"deductible_percent"`
	DeductibleMinimum float64    `yaml:"deductible_minimum" json:"deductible_minimum"`
	CommercialHolder  bool       `yaml:"commercial_holder" json:"commercial_holder"`
}

// Policy is the versioned policy configuration a claim is screened against.
// Loaded from config, never hardcoded.
type Policy struct {
	Number            string            `yaml:"number" json:"number"`
	HolderName        string            `yaml:"holder_name" json:"holder_name"`
	CoverageStart     time.Time         `yaml:"coverage_start" json:"coverage_start"`
	CoverageEnd       time.Time         `yaml:"coverage_end" json:"coverage_end"`
	MileageLimitKM    int               `yaml:"mileage_limit_km" json:"mileage_limit_km"` // 0 = no limit
	FirstRegistration time.Time         `yaml:"first_registration" json:"first_registration"`
	Categories        []CoveredCategory `yaml:"categories" json:"categories"`
	Payout            PayoutParams      `yaml:"payout" json:"payout"`
	Version           string            `yaml:"version" json:"version"`
}

// CategoryNames returns the covered category names in declaration order.
func (p *Policy) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Category resolves a name to the covered category that declares it,
// matching the category name or any of its synonyms case-insensitively.
// Returns nil when no covered category claims the name.
func (p *Policy) Category(name string) *CoveredCategory {
	for i := range p.Categories {
		c := &p.Categories[i]
		if strings.EqualFold(c.Name, name) {
			return c
		}
		for _, syn := range c.Synonyms {
			if strings.EqualFold(syn, name) {
				return c
			}
		}
	}
	return nil
}
