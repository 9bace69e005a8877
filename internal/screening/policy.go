package screening

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/avanta-group/claims-cli/internal/model"
)

// LoadPolicy reads a versioned policy configuration from a YAML file and
// validates the parameters the payout chain depends on. Policy terms are
// configuration, never code.
func LoadPolicy(path string) (*model.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "screening: read policy %s", path)
	}

	var wrapper struct {
		Policy model.Policy `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "screening: parse policy")
	}
	p := &wrapper.Policy

	if err := validatePolicy(p); err != nil {
		return nil, eris.Wrapf(err, "screening: invalid policy %s", path)
	}
	return p, nil
}

func validatePolicy(p *model.Policy) error {
	switch {
	case len(p.Categories) == 0:
		return eris.New("no covered categories")
	case len(p.Payout.RateSchedule) == 0:
		return eris.New("empty rate schedule")
	case p.Payout.VATPercent < 0:
		return eris.New("negative VAT percent")
	case p.Payout.DeductiblePercent < 0 || p.Payout.DeductibleMinimum < 0:
		return eris.New("negative deductible parameters")
	case p.Payout.MaxCoverage < 0:
		return eris.New("negative max coverage")
	}
	for _, tier := range p.Payout.RateSchedule {
		if tier.PartsRate < 0 || tier.PartsRate > 1 || tier.LaborRate < 0 || tier.LaborRate > 1 {
			return eris.Errorf("rate tier outside [0,1]: parts %.2f labor %.2f", tier.PartsRate, tier.LaborRate)
		}
	}
	for _, c := range p.Categories {
		if c.CoverageRate < 0 || c.CoverageRate > 1 {
			return eris.Errorf("category %s coverage rate outside [0,1]: %.2f", c.Name, c.CoverageRate)
		}
		if c.MaxCoverage < 0 {
			return eris.Errorf("category %s: negative max coverage", c.Name)
		}
	}
	return nil
}
