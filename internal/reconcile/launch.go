package reconcile

import (
	"context"
	"fmt"
	"os"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/cloudinit"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// Launch creates every selected instance that is configured in the manifest
// and not live yet. All launches run together and are waited for.
//
// Instances with a cloud_init block get a rendered user-data file that is
// removed once the batch finished.
func (r *Reconciler) Launch(ctx context.Context, m *manifest.Manifest, names []string) (*batch.Report, error) {
	live, err := r.liveSet(ctx)
	if err != nil {
		return nil, err
	}

	var (
		tasks     []batch.Task
		userData  []string
		scheduled = make(map[string]bool)
	)
	defer func() {
		for _, path := range userData {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				r.Log.Warn().Err(err).Str("path", path).Msg("failed to remove cloud-init user-data")
			}
		}
	}()

	for _, name := range Select(names, m) {
		inst, ok := m.Lookup(name)
		switch {
		case !ok:
			r.Log.Warn().Str("instance", name).Msg("instance is not defined in the manifest, skipping")
			continue
		case live[name]:
			r.Log.Warn().Str("instance", name).Msg("instance exists already, skipping")
			continue
		case scheduled[name]:
			r.Log.Debug().Str("instance", name).Msg("instance named more than once, launching once")
			continue
		}
		scheduled[name] = true

		var cloudInitFile string
		if inst.CloudInit != nil {
			cloudInitFile, err = cloudinit.WriteUserData(r.CloudInitDir, inst)
			if err != nil {
				return nil, fmt.Errorf("failed to prepare cloud-init for %s: %w", name, err)
			}
			userData = append(userData, cloudInitFile)
		}

		tasks = append(tasks, batch.Task{
			Name:  name,
			Steps: [][]string{multipass.LaunchArgs(inst, cloudInitFile)},
		})
	}

	return r.run(ctx, r.Policies.Launch, "launch", tasks)
}
