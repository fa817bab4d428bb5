package housing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type orderFile struct {
	FeatureOrder []string `yaml:"feature_order"`
}

// LoadFeatureOrder reads a declared column order from a YAML file of the form
//
//	feature_order:
//	  - area
//	  - bedrooms
func LoadFeatureOrder(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature order %s: %w", path, err)
	}

	var f orderFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse feature order %s: %w", path, err)
	}
	if len(f.FeatureOrder) == 0 {
		return nil, fmt.Errorf("feature order %s: feature_order is empty", path)
	}

	seen := make(map[string]bool, len(f.FeatureOrder))
	for _, name := range f.FeatureOrder {
		if name == "" {
			return nil, fmt.Errorf("feature order %s: empty column name", path)
		}
		if seen[name] {
			return nil, fmt.Errorf("feature order %s: duplicate column %q", path, name)
		}
		seen[name] = true
	}
	return f.FeatureOrder, nil
}
