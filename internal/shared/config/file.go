package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadYAMLFile reads a flat KEY: value YAML document keyed by the same names as the environment.
func loadYAMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out := make(map[string]string, len(raw))
	for key, val := range raw {
		if val == nil {
			continue
		}
		out[key] = fmt.Sprint(val)
	}
	return out, nil
}
