package recipe

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type exportDoc struct {
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ExportYAML writes r in a human-readable form for sharing or review.
func ExportYAML(w io.Writer, r Recipe) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exportDoc{ID: r.ID, Name: r.Name, Steps: r.Steps}); err != nil {
		return fmt.Errorf("encode recipe: %w", err)
	}
	return enc.Close()
}
