// Package ingest is the system boundary for extraction artifacts: it loads
// per-document artifact JSON produced by the extraction collaborator,
// validates it against the declared fact schema, and records it as a
// document run. Nothing past this boundary sees an undeclared fact key.
package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/avanta-group/claims-cli/internal/model"
)

// LoadSchema reads the fact schema declaration from a YAML file and builds
// the registry.
func LoadSchema(path string) (*model.SchemaRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read schema %s", path)
	}

	var wrapper struct {
		Facts []model.FactSpec `yaml:"facts"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "ingest: parse schema")
	}
	if len(wrapper.Facts) == 0 {
		return nil, eris.Errorf("ingest: schema %s declares no facts", path)
	}

	for _, s := range wrapper.Facts {
		if s.Key == "" {
			return nil, eris.Errorf("ingest: schema %s has a fact without a key", path)
		}
		switch s.DataType {
		case "", "string", "number", "date", "bool":
		default:
			return nil, eris.Errorf("ingest: fact %s has unknown data type %q", s.Key, s.DataType)
		}
	}

	return model.NewSchemaRegistry(wrapper.Facts), nil
}
