package reconcile

import (
	"context"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// Manager reads live state from the instance manager.
//
// In production, this is satisfied by *multipass.Client.
// In tests, this is satisfied by mock implementations.
type Manager interface {
	// ListInstances returns the names of all live instances
	ListInstances(ctx context.Context) ([]string, error)

	// Instances returns all live instances with their state
	Instances(ctx context.Context) ([]multipass.InstanceInfo, error)

	// Mounts returns the live mounts of an instance as host path → guest path
	Mounts(ctx context.Context, name string) (map[string]string, error)
}

// Executor runs batches of manager commands.
//
// In production, this is satisfied by *batch.Executor.
type Executor interface {
	Run(ctx context.Context, policy batch.Policy, tasks []batch.Task) (*batch.Report, error)
}
