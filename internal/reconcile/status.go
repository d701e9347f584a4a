package reconcile

import (
	"context"
	"fmt"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/status"
)

// Status reports configured and live state of the selected instances, in
// selection order. It never changes anything.
func (r *Reconciler) Status(ctx context.Context, m *manifest.Manifest, names []string) ([]status.Instance, error) {
	infos, err := r.Manager.Instances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	live := make(map[string]*multipass.InstanceInfo, len(infos))
	for i := range infos {
		live[infos[i].Name] = &infos[i]
	}

	targets := Select(names, m)
	rows := make([]status.Instance, 0, len(targets))
	for _, name := range targets {
		var desired *manifest.Instance
		if m != nil {
			desired, _ = m.Lookup(name)
		}
		rows = append(rows, status.Build(name, desired, live[name]))
	}
	return rows, nil
}
