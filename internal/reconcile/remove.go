package reconcile

import (
	"context"
	"strings"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// Stop stops the selected live instances with a single command. With all
// set, every instance is stopped and names are ignored; m may then be nil.
func (r *Reconciler) Stop(ctx context.Context, m *manifest.Manifest, names []string, all bool) (*batch.Report, error) {
	return r.bulk(ctx, r.Policies.Stop, "stop", multipass.StopArgs, m, names, all)
}

// Delete deletes the selected live instances with a single command. With
// all set, every instance is deleted and names are ignored; m may then be nil.
func (r *Reconciler) Delete(ctx context.Context, m *manifest.Manifest, names []string, all bool) (*batch.Report, error) {
	return r.bulk(ctx, r.Policies.Delete, "delete", multipass.DeleteArgs, m, names, all)
}

func (r *Reconciler) bulk(
	ctx context.Context,
	policy batch.Policy,
	op string,
	buildArgs func(names []string, all bool) []string,
	m *manifest.Manifest,
	names []string,
	all bool,
) (*batch.Report, error) {
	if all {
		if len(names) > 0 {
			r.Log.Debug().Strs("names", names).Msg("--all given, ignoring instance names")
		}
		return r.run(ctx, policy, op, []batch.Task{{
			Name:  "all",
			Steps: [][]string{buildArgs(nil, true)},
		}})
	}

	live, err := r.liveSet(ctx)
	if err != nil {
		return nil, err
	}

	var targets []string
	seen := make(map[string]bool)
	for _, name := range Select(names, m) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if !live[name] {
			r.Log.Debug().Str("instance", name).Msgf("instance does not exist, nothing to %s", op)
			continue
		}
		targets = append(targets, name)
	}

	if len(targets) == 0 {
		return r.run(ctx, policy, op, nil)
	}
	return r.run(ctx, policy, op, []batch.Task{{
		Name:  strings.Join(targets, ","),
		Steps: [][]string{buildArgs(targets, false)},
	}})
}
