package reconcile

import (
	"context"
	"fmt"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// Mount brings the mounts of every selected live instance in line with the
// manifest. Instances that are not live are skipped without a message.
//
// For each configured host path, in manifest order:
//   - mounted at the configured guest path: nothing to do
//   - mounted at another guest path: unmount it, then mount it at the
//     configured path (one task, the mount only runs after a successful unmount)
//   - not mounted: mount it if the host path exists, warn otherwise
//
// Live mounts that are not in the manifest are left alone.
func (r *Reconciler) Mount(ctx context.Context, m *manifest.Manifest, names []string) (*batch.Report, error) {
	live, err := r.liveSet(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []batch.Task
	visited := make(map[string]bool)
	for _, name := range Select(names, m) {
		if !live[name] || visited[name] {
			continue
		}
		visited[name] = true

		var desired []manifest.Mount
		if inst, ok := m.Lookup(name); ok {
			desired = inst.Mounts
		}
		if len(desired) == 0 {
			continue
		}

		mounted, err := r.Manager.Mounts(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read mounts of %s: %w", name, err)
		}

		tasks = append(tasks, r.mountTasks(name, desired, mounted)...)
	}

	return r.run(ctx, r.Policies.Mount, "mount", tasks)
}

// mountTasks plans the tasks for one instance. mounted maps host path to
// guest path.
func (r *Reconciler) mountTasks(name string, desired []manifest.Mount, mounted map[string]string) []batch.Task {
	var tasks []batch.Task
	for _, mnt := range desired {
		log := r.Log.With().Str("instance", name).Str("host", mnt.Host).Logger()

		current, ok := mounted[mnt.Host]
		switch {
		case ok && current == mnt.Guest:
			log.Debug().Str("guest", mnt.Guest).Msg("mounted already")
		case ok:
			log.Info().Msgf("moving mount from %s to %s", current, mnt.Guest)
			tasks = append(tasks, batch.Task{
				Name: multipass.Target(name, mnt.Guest),
				Steps: [][]string{
					multipass.UmountArgs(name, current),
					multipass.MountArgs(mnt.Host, name, mnt.Guest),
				},
			})
		case r.pathExists(mnt.Host):
			log.Info().Msgf("mounting at %s", mnt.Guest)
			tasks = append(tasks, batch.Task{
				Name:  multipass.Target(name, mnt.Guest),
				Steps: [][]string{multipass.MountArgs(mnt.Host, name, mnt.Guest)},
			})
		default:
			log.Warn().Msg("host directory does not exist, skipping")
		}
	}
	return tasks
}
