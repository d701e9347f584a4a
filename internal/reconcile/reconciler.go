package reconcile

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

// Policies holds the batch policy of each operation.
type Policies struct {
	Launch batch.Policy
	Mount  batch.Policy
	Stop   batch.Policy
	Delete batch.Policy
}

// DefaultPolicies waits for launches to succeed and treats everything else
// as best effort.
func DefaultPolicies() Policies {
	return Policies{
		Launch: batch.Await,
		Mount:  batch.BestEffort,
		Stop:   batch.BestEffort,
		Delete: batch.BestEffort,
	}
}

// Reconciler applies a manifest to the instance manager.
type Reconciler struct {
	Manager  Manager
	Executor Executor
	Policies Policies
	Log      zerolog.Logger

	// CloudInitDir receives rendered user-data files while instances launch.
	// Empty means the system temp directory.
	CloudInitDir string

	// PathExists reports whether a host path exists. Nil means os.Stat.
	PathExists func(path string) bool
}

// New creates a reconciler with the default policies.
func New(manager Manager, executor Executor, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		Manager:  manager,
		Executor: executor,
		Policies: DefaultPolicies(),
		Log:      log,
	}
}

// Select returns the instances an operation applies to: names unchanged when
// given, otherwise every manifest instance in manifest order.
//
// Names that are not in the manifest are kept; operations decide what to do
// with them.
func Select(names []string, m *manifest.Manifest) []string {
	if len(names) > 0 {
		return names
	}
	if m == nil {
		return []string{}
	}
	return m.Names()
}

// liveSet returns the names of all live instances.
func (r *Reconciler) liveSet(ctx context.Context) (map[string]bool, error) {
	names, err := r.Manager.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	live := make(map[string]bool, len(names))
	for _, name := range names {
		live[name] = true
	}
	return live, nil
}

func (r *Reconciler) pathExists(path string) bool {
	if r.PathExists != nil {
		return r.PathExists(path)
	}
	_, err := os.Stat(path)
	return err == nil
}

// run hands tasks to the executor. An empty batch is not run.
func (r *Reconciler) run(ctx context.Context, policy batch.Policy, op string, tasks []batch.Task) (*batch.Report, error) {
	if len(tasks) == 0 {
		r.Log.Info().Msgf("nothing to %s", op)
		return &batch.Report{Policy: policy}, nil
	}

	report, err := r.Executor.Run(ctx, policy, tasks)
	if err != nil {
		return report, fmt.Errorf("failed to %s instances: %w", op, err)
	}
	return report, nil
}
