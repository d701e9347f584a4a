package output

import (
	"encoding/json"
	"fmt"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/status"
)

// JSONFormatter formats instance status as JSON.
type JSONFormatter struct{}

// FormatInstances formats instance status rows as a JSON array.
func (f *JSONFormatter) FormatInstances(instances []status.Instance) (string, error) {
	if len(instances) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(instances, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal instances to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
