package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

func TestMount_Plans(t *testing.T) {
	tests := []struct {
		name         string
		desired      []manifest.Mount
		mounted      map[string]string
		missing      map[string]bool
		wantTasks    [][][]string
		wantWarnings int
	}{
		{
			name:    "new mount",
			desired: []manifest.Mount{{Host: "/host/a", Guest: "a"}},
			wantTasks: [][][]string{
				{{"mount", "/host/a", "dev:a"}},
			},
		},
		{
			name:    "mounted already",
			desired: []manifest.Mount{{Host: "/host/a", Guest: "a"}},
			mounted: map[string]string{"/host/a": "a"},
		},
		{
			name:    "guest path changed",
			desired: []manifest.Mount{{Host: "/host/a", Guest: "a"}},
			mounted: map[string]string{"/host/a": "b"},
			wantTasks: [][][]string{
				{{"umount", "dev:b"}, {"mount", "/host/a", "dev:a"}},
			},
		},
		{
			name:         "missing host path",
			desired:      []manifest.Mount{{Host: "/host/gone", Guest: "gone"}},
			missing:      map[string]bool{"/host/gone": true},
			wantWarnings: 1,
		},
		{
			name: "mixed in manifest order",
			desired: []manifest.Mount{
				{Host: "/host/c", Guest: "c"},
				{Host: "/host/a", Guest: "a"},
				{Host: "/host/gone", Guest: "gone"},
				{Host: "/host/b", Guest: "b"},
			},
			mounted: map[string]string{"/host/a": "old", "/host/b": "b", "/host/extra": "extra"},
			missing: map[string]bool{"/host/gone": true},
			wantTasks: [][][]string{
				{{"mount", "/host/c", "dev:c"}},
				{{"umount", "dev:old"}, {"mount", "/host/a", "dev:a"}},
			},
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustManifest(t, instance("dev", tt.desired...))
			mgr := newMockManager("dev")
			mgr.mounts["dev"] = tt.mounted
			r, exec, logs := newTestReconciler(t, mgr)
			r.PathExists = func(path string) bool { return !tt.missing[path] }

			if _, err := r.Mount(context.Background(), m, nil); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}

			var tasks []batch.Task
			for _, b := range exec.batches {
				tasks = append(tasks, b...)
			}
			if len(tasks) != len(tt.wantTasks) {
				t.Fatalf("got %d tasks %v, want %d", len(tasks), tasks, len(tt.wantTasks))
			}
			for i, want := range tt.wantTasks {
				got := tasks[i].Steps
				if len(got) != len(want) {
					t.Errorf("task %d steps = %v, want %v", i, got, want)
					continue
				}
				for j := range want {
					if !equalArgs(got[j], want[j]) {
						t.Errorf("task %d step %d = %v, want %v", i, j, got[j], want[j])
					}
				}
			}
			if len(tt.wantTasks) == 0 && len(exec.batches) != 0 {
				t.Errorf("expected no batch, got %d", len(exec.batches))
			}
			if got := warnings(logs); got != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %s", got, tt.wantWarnings, logs.String())
			}
		})
	}
}

func TestMount_Idempotent(t *testing.T) {
	desired := []manifest.Mount{
		{Host: "/host/a", Guest: "a"},
		{Host: "/host/b", Guest: "b"},
	}
	m := mustManifest(t, instance("dev", desired...))
	mgr := newMockManager("dev")
	mgr.mounts["dev"] = map[string]string{"/host/a": "old"}
	r, exec, _ := newTestReconciler(t, mgr)

	// The executor applies mount commands to the mock's live state
	exec.runFunc = func(policy batch.Policy, tasks []batch.Task) (*batch.Report, error) {
		for _, task := range tasks {
			for _, args := range task.Steps {
				if args[0] == "mount" {
					mgr.mounts["dev"][args[1]] = args[2][len("dev:"):]
				}
			}
		}
		return &batch.Report{Policy: policy}, nil
	}

	if _, err := r.Mount(context.Background(), m, nil); err != nil {
		t.Fatalf("first Mount() error = %v", err)
	}
	first := len(exec.commands())
	if first != 3 {
		t.Fatalf("first run issued %d commands, want 3: %v", first, exec.commands())
	}

	if _, err := r.Mount(context.Background(), m, nil); err != nil {
		t.Fatalf("second Mount() error = %v", err)
	}
	if got := len(exec.commands()); got != first {
		t.Errorf("second run issued %d commands, want none: %v", got-first, exec.commands()[first:])
	}
}

func TestMount_SkipsInstancesNotLive(t *testing.T) {
	m := mustManifest(t,
		instance("up", manifest.Mount{Host: "/host/a", Guest: "a"}),
		instance("down", manifest.Mount{Host: "/host/b", Guest: "b"}),
	)
	mgr := newMockManager("up")
	r, exec, logs := newTestReconciler(t, mgr)

	if _, err := r.Mount(context.Background(), m, nil); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if !equalArgs(mgr.mountsCalls, []string{"up"}) {
		t.Errorf("mounts queried for %v, want [up]", mgr.mountsCalls)
	}
	if cmds := exec.commands(); len(cmds) != 1 || cmds[0][2] != "up:a" {
		t.Errorf("commands = %v, want one mount for up", cmds)
	}
	if warnings(logs) != 0 {
		t.Errorf("expected no warnings, got: %s", logs.String())
	}
}

func TestMount_LiveInstanceNotInManifest(t *testing.T) {
	m := mustManifest(t, instance("dev"))
	r, exec, _ := newTestReconciler(t, newMockManager("stray"))

	if _, err := r.Mount(context.Background(), m, []string{"stray"}); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if len(exec.batches) != 0 {
		t.Errorf("expected no commands, got %v", exec.commands())
	}
}

func TestMount_MountsQueryFails(t *testing.T) {
	m := mustManifest(t, instance("dev", manifest.Mount{Host: "/host/a", Guest: "a"}))
	mgr := newMockManager("dev")
	mgr.mountsErr = errors.New("multipass info failed")
	r, _, _ := newTestReconciler(t, mgr)

	if _, err := r.Mount(context.Background(), m, nil); err == nil {
		t.Fatal("expected error when mounts cannot be read")
	}
}

func TestMount_UmountFailureSkipsMount(t *testing.T) {
	m := mustManifest(t, instance("dev", manifest.Mount{Host: "/host/a", Guest: "a"}))
	mgr := newMockManager("dev")
	mgr.mounts["dev"] = map[string]string{"/host/a": "b"}

	runner := &recordingRunner{fail: map[string]bool{"umount": true}}
	exec := batch.NewExecutor("multipass", zerolog.Nop())
	exec.Runner = runner

	r := New(mgr, exec, zerolog.Nop())
	r.PathExists = func(string) bool { return true }

	report, err := r.Mount(context.Background(), m, nil)
	if err != nil {
		t.Fatalf("Mount() error = %v (best-effort policy)", err)
	}

	if len(runner.calls) != 1 || !equalArgs(runner.calls[0], []string{"umount", "dev:b"}) {
		t.Errorf("runner calls = %v, want only the umount", runner.calls)
	}
	if failed := report.Failed(); len(failed) != 1 {
		t.Errorf("expected 1 failed task, got %v", failed)
	}
}

func TestMount_AwaitPolicy(t *testing.T) {
	m := mustManifest(t, instance("dev", manifest.Mount{Host: "/host/a", Guest: "a"}))
	runner := &recordingRunner{fail: map[string]bool{"mount": true}}
	exec := batch.NewExecutor("multipass", zerolog.Nop())
	exec.Runner = runner

	r := New(newMockManager("dev"), exec, zerolog.Nop())
	r.PathExists = func(string) bool { return true }
	r.Policies.Mount = batch.Await

	if _, err := r.Mount(context.Background(), m, nil); err == nil {
		t.Fatal("expected error under await policy")
	}
}
