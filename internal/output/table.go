package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/status"
)

// TableFormatter formats instance status as a human-readable table.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatInstances formats instance status rows as a table.
func (f *TableFormatter) FormatInstances(instances []status.Instance) (string, error) {
	if len(instances) == 0 {
		return "No instances found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tIPV4\tCPUS\tMEMORY\tDISK\tMOUNTS\tCONFIGURED")
	}

	for _, inst := range instances {
		ip := "-"
		if len(inst.IPv4) > 0 {
			ip = strings.Join(inst.IPv4, ",")
		}

		configured := "no"
		if inst.Configured {
			configured = "yes"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			inst.Name,
			inst.Phase,
			ip,
			orDash(inst.CPUs),
			orDash(inst.Memory),
			orDash(inst.Disk),
			len(inst.Mounts),
			configured,
		)
	}

	_ = w.Flush()
	return buf.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
