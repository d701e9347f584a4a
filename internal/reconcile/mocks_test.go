package reconcile

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// mockManager is a mock implementation of the Manager interface for testing.
type mockManager struct {
	mu sync.Mutex

	// Configurable behavior
	instances []multipass.InstanceInfo
	mounts    map[string]map[string]string
	listErr   error
	mountsErr error

	// Call tracking
	listCalls      int
	instancesCalls int
	mountsCalls    []string
}

// newMockManager creates a manager reporting the given instances as running.
func newMockManager(live ...string) *mockManager {
	m := &mockManager{mounts: make(map[string]map[string]string)}
	for _, name := range live {
		m.instances = append(m.instances, multipass.InstanceInfo{Name: name, State: "Running"})
	}
	return m
}

func (m *mockManager) ListInstances(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.instances))
	for _, info := range m.instances {
		names = append(names, info.Name)
	}
	return names, nil
}

func (m *mockManager) Instances(_ context.Context) ([]multipass.InstanceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instancesCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.instances, nil
}

func (m *mockManager) Mounts(_ context.Context, name string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mountsCalls = append(m.mountsCalls, name)
	if m.mountsErr != nil {
		return nil, m.mountsErr
	}
	mounts := make(map[string]string)
	for host, guest := range m.mounts[name] {
		mounts[host] = guest
	}
	return mounts, nil
}

// mockExecutor is a mock implementation of the Executor interface for testing.
// It records batches and reports every task as successful unless runFunc is set.
type mockExecutor struct {
	mu sync.Mutex

	runFunc func(policy batch.Policy, tasks []batch.Task) (*batch.Report, error)

	policies []batch.Policy
	batches  [][]batch.Task
}

func (e *mockExecutor) Run(_ context.Context, policy batch.Policy, tasks []batch.Task) (*batch.Report, error) {
	e.mu.Lock()
	e.policies = append(e.policies, policy)
	e.batches = append(e.batches, tasks)
	runFunc := e.runFunc
	e.mu.Unlock()

	if runFunc != nil {
		return runFunc(policy, tasks)
	}
	report := &batch.Report{Policy: policy}
	for _, task := range tasks {
		res := batch.Result{Task: task.Name}
		for _, args := range task.Steps {
			res.Steps = append(res.Steps, batch.StepResult{Args: args})
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// commands returns every argument list handed to the executor.
func (e *mockExecutor) commands() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var cmds [][]string
	for _, tasks := range e.batches {
		for _, task := range tasks {
			cmds = append(cmds, task.Steps...)
		}
	}
	return cmds
}

// recordingRunner is a batch.Runner that records argument lists and fails
// calls whose verb is listed in fail.
type recordingRunner struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	if len(args) > 0 && r.fail[args[0]] {
		return nil, []byte("operation failed"), 2, nil
	}
	return nil, nil, 0, nil
}

// newTestReconciler returns a reconciler with mocks and a JSON logger
// writing into the returned buffer.
func newTestReconciler(t *testing.T, mgr *mockManager) (*Reconciler, *mockExecutor, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	exec := &mockExecutor{}
	r := New(mgr, exec, zerolog.New(&logs))
	r.CloudInitDir = t.TempDir()
	r.PathExists = func(string) bool { return true }
	return r, exec, &logs
}

// warnings counts warning events in a JSON log buffer.
func warnings(logs *bytes.Buffer) int {
	return strings.Count(logs.String(), `"level":"warn"`)
}

// mustManifest builds a manifest or fails the test.
func mustManifest(t *testing.T, instances ...*manifest.Instance) *manifest.Manifest {
	t.Helper()
	m, err := manifest.New(instances...)
	if err != nil {
		t.Fatalf("failed to build manifest: %v", err)
	}
	return m
}

// instance builds a manifest instance with default resources.
func instance(name string, mounts ...manifest.Mount) *manifest.Instance {
	return &manifest.Instance{
		Name: name,
		Attributes: []manifest.Attribute{
			{Key: "cpus", Value: "1"},
			{Key: "memory", Value: "1G"},
			{Key: "disk", Value: "10G"},
		},
		Mounts: mounts,
	}
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
