package coverage

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TermEntry maps a match-table key to a coverage outcome. Confidence below
// the acceptance threshold turns the entry into a review router rather than
// a weak accept.
type TermEntry struct {
	Category   string  `yaml:"category"`
	Confidence float64 `yaml:"confidence"`
	Covered    bool    `yaml:"covered"`
	Note       string  `yaml:"note,omitempty"`
}

// Tables is the full set of matcher configuration: keyword terms, hard
// exclusion keywords, and the part-number table. Loaded once per process
// and treated as immutable for the lifetime of a run.
type Tables struct {
	// Keywords maps a lowercase term (German/French terms share one table)
	// to its category and confidence. Longer terms are matched before
	// their substrings, so a specific compound term beats a generic one.
	Keywords map[string]TermEntry `yaml:"keywords"`

	// Exclusions are contractual hard exclusions (assistance, towing,
	// administrative fees). Matching any of them is a deterministic
	// not-covered at confidence 1.0.
	Exclusions []string `yaml:"exclusions"`

	// PartNumbers maps exact part numbers (compared after whitespace/case
	// normalization) to categories.
	PartNumbers map[string]TermEntry `yaml:"part_numbers"`
}

// LoadTables reads matcher tables from a YAML file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: read tables %s", path)
	}
	t, err := LoadTablesFromBytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: tables %s", path)
	}
	return t, nil
}

// LoadTablesFromBytes parses matcher tables from YAML.
func LoadTablesFromBytes(data []byte) (*Tables, error) {
	var wrapper struct {
		Tables Tables `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "coverage: parse tables")
	}

	t := &wrapper.Tables
	if len(t.Keywords) == 0 && len(t.Exclusions) == 0 && len(t.PartNumbers) == 0 {
		return nil, eris.New("coverage: tables declare no entries")
	}

	// Normalize table keys once at load so matching never re-normalizes.
	keywords := make(map[string]TermEntry, len(t.Keywords))
	for term, entry := range t.Keywords {
		keywords[foldTerm(term)] = entry
	}
	t.Keywords = keywords

	parts := make(map[string]TermEntry, len(t.PartNumbers))
	for pn, entry := range t.PartNumbers {
		parts[normalizePartNumber(pn)] = entry
	}
	t.PartNumbers = parts

	for i, kw := range t.Exclusions {
		t.Exclusions[i] = foldTerm(kw)
	}

	return t, nil
}

// normalizePartNumber strips all whitespace and upcases, so "06h 109 158j"
// and "06H109158J" compare equal.
func normalizePartNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
