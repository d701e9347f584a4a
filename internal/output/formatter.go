// Package output renders the rows of `msl status`: one row per selected
// instance, pairing the manifest's resources and mounts with what Multipass
// reports for it.
package output

import (
	"fmt"
	"strings"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/status"
)

// Format names a rendering accepted by `msl status -o`.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Formats lists the accepted formats in help order.
var Formats = []Format{FormatTable, FormatYAML, FormatJSON}

// Formatter renders status rows in manifest order.
type Formatter interface {
	FormatInstances(rows []status.Instance) (string, error)
}

// Options selects the rendering. NoHeaders only affects the table.
type Options struct {
	Format    Format
	NoHeaders bool
}

// NewFormatter returns the Formatter for opts.Format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	}
	return nil, unknownFormat(string(opts.Format))
}

// ParseFormat maps the value of `-o` to a Format. Matching is exact, so
// "YAML" is rejected.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", unknownFormat(s)
}

func unknownFormat(s string) error {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return fmt.Errorf("unknown status format %q (use one of: %s)", s, strings.Join(names, ", "))
}
