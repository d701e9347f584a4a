package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultInstanceName is the single instance written by WriteDefault.
const DefaultInstanceName = "primary"

// defaultDocument is the manifest written by `msl init`.
func defaultDocument() map[string]interface{} {
	return map[string]interface{}{
		"instances": map[string]interface{}{
			DefaultInstanceName: map[string]interface{}{
				"cpus":   1,
				"memory": "1G",
				"disk":   "10G",
			},
		},
	}
}

// DefaultContent returns the default manifest encoded for path's format.
func DefaultContent(path string) ([]byte, error) {
	var buf bytes.Buffer

	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(defaultDocument()); err != nil {
			return nil, fmt.Errorf("failed to marshal default manifest to TOML: %w", err)
		}
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultDocument()); err != nil {
		return nil, fmt.Errorf("failed to marshal default manifest to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal default manifest to YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default manifest to path unless a file already
// exists there. It never overwrites; created reports whether it wrote.
func WriteDefault(path string) (created bool, err error) {
	data, err := DefaultContent(path)
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create manifest %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to write manifest %s: %w", path, err)
	}

	return true, nil
}
