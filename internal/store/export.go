package store

import (
	"fmt"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/param"
	"gopkg.in/yaml.v3"
)

// ExportedField is one parameter in an exported document.
type ExportedField struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label,omitempty"`
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity"`
	Offset   int    `yaml:"offset"`
	Value    string `yaml:"value"`
}

// ExportedConfig is the YAML view of a stored region.
type ExportedConfig struct {
	Version string          `yaml:"version"`
	Size    int             `yaml:"size"`
	Fields  []ExportedField `yaml:"fields"`
}

// Export renders the registry values as YAML together with their layout.
// Password values are replaced with "<hidden>" unless showSecrets is set.
func Export(reg *param.Registry, version string, showSecrets bool) ([]byte, error) {
	doc := ExportedConfig{
		Version: version,
		Size:    RegionSize(reg),
	}

	offset := VersionLength
	for p := range reg.Fields() {
		value := p.Value()
		if p.IsPassword() && !showSecrets {
			value = logging.HiddenValue
		}
		doc.Fields = append(doc.Fields, ExportedField{
			ID:       p.ID,
			Label:    p.Label,
			Kind:     p.Kind.String(),
			Capacity: p.Capacity(),
			Offset:   offset,
			Value:    value,
		})
		offset += p.Capacity()
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
