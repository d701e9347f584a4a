package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/status"
)

// YAMLFormatter formats instance status as YAML.
type YAMLFormatter struct{}

// FormatInstances formats instance status rows as a YAML sequence.
func (f *YAMLFormatter) FormatInstances(instances []status.Instance) (string, error) {
	if len(instances) == 0 {
		return "[]\n", nil
	}

	data, err := yaml.Marshal(instances)
	if err != nil {
		return "", fmt.Errorf("failed to marshal instances to YAML: %w", err)
	}

	return string(data), nil
}
