package model

import "regexp"

// FactSpec declares one fact an extraction schema may produce. Facts are an
// open, config-declared set keyed by string name; each declared fact
// validates values
// at the ingestion boundary rather than scattering string lookups through
// business logic.
type FactSpec struct {
	Key             string         `yaml:"key" json:"key"`
	DocTypes        []DocType      `yaml:"doc_types" json:"doc_types"`
	DataType        string         `yaml:"data_type" json:"data_type"` // string, number, date, bool
	Required        bool           `yaml:"required" json:"required"`
	Validation      string         `yaml:"validation,omitempty" json:"validation,omitempty"`
	ValidationRegex *regexp.Regexp `yaml:"-" json:"-"` // compiled at registry load
}

// SchemaRegistry is an indexed collection of fact specs with per-document
// required-fact lookups.
type SchemaRegistry struct {
	Specs []FactSpec

	byKey         map[string]*FactSpec
	requiredByDoc map[DocType][]*FactSpec
}

// NewSchemaRegistry indexes the given specs and pre-compiles validation
// patterns. Specs with invalid patterns keep a nil regex and validate as
// pass-through.
func NewSchemaRegistry(specs []FactSpec) *SchemaRegistry {
	r := &SchemaRegistry{
		Specs:         specs,
		byKey:         make(map[string]*FactSpec, len(specs)),
		requiredByDoc: make(map[DocType][]*FactSpec),
	}
	for i := range r.Specs {
		s := &r.Specs[i]
		if s.Validation != "" {
			if re, err := regexp.Compile(s.Validation); err == nil {
				s.ValidationRegex = re
			}
		}
		r.byKey[s.Key] = s
		if s.Required {
			for _, dt := range s.DocTypes {
				r.requiredByDoc[dt] = append(r.requiredByDoc[dt], s)
			}
		}
	}
	return r
}

// ByKey returns the spec for a fact key, or nil if undeclared.
func (r *SchemaRegistry) ByKey(key string) *FactSpec {
	return r.byKey[key]
}

// CriticalFacts returns the union of required fact keys across the given
// document types plus any claim-level extras, deduplicated, in a stable
// order (declaration order, extras last).
func (r *SchemaRegistry) CriticalFacts(docTypes []DocType, extras ...string) []string {
	want := make(map[DocType]bool, len(docTypes))
	for _, dt := range docTypes {
		want[dt] = true
	}

	seen := make(map[string]bool)
	var keys []string
	for i := range r.Specs {
		s := &r.Specs[i]
		if !s.Required || seen[s.Key] {
			continue
		}
		for _, dt := range s.DocTypes {
			if want[dt] {
				seen[s.Key] = true
				keys = append(keys, s.Key)
				break
			}
		}
	}
	for _, k := range extras {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
