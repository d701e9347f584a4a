// Package batch runs groups of external commands and reports a result for
// every item.
//
// A batch is a list of tasks. Each task is an ordered list of steps (argv
// lists); a step only starts once the previous step of the same task exited
// successfully. Tasks of a batch run concurrently, bounded by the executor's
// parallelism.
//
// Every batch is awaited: no process outlives the call to Run. The Policy of
// a batch decides what a failed step means:
//   - Await: failures are errors, Run returns them joined.
//   - BestEffort: failures are logged as warnings, Run returns nil.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Policy decides how step failures of a batch are treated.
type Policy string

const (
	// Await treats any failed step as an error of the batch.
	Await Policy = "await"
	// BestEffort reports failed steps as warnings only.
	BestEffort Policy = "best-effort"
)

// ParsePolicy converts a settings value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case Await:
		return Await, nil
	case BestEffort:
		return BestEffort, nil
	default:
		return "", fmt.Errorf("invalid batch policy %q (valid policies: %s, %s)", s, Await, BestEffort)
	}
}

// Task is a unit of work for one item, e.g. one instance or one host path.
type Task struct {
	// Name identifies the item in logs and results.
	Name string
	// Steps are argument lists passed to the executor's binary, in order.
	Steps [][]string
}

// StepResult is the outcome of a single process.
type StepResult struct {
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	DryRun   bool
	Err      error
}

// Result is the outcome of a task.
type Result struct {
	Task  string
	Steps []StepResult
	// Err is the error of the first failed step, nil when all steps succeeded.
	Err error
}

// OK reports whether every step of the task succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report collects the results of one batch, in task order.
type Report struct {
	RunID   string
	Policy  Policy
	Results []Result
}

// Failed returns the results of tasks that did not complete.
func (r *Report) Failed() []Result {
	if r == nil {
		return nil
	}
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Commands returns every argument list that was run (or would have been run
// in dry-run mode), in task order.
func (r *Report) Commands() [][]string {
	if r == nil {
		return nil
	}
	var cmds [][]string
	for _, res := range r.Results {
		for _, step := range res.Steps {
			cmds = append(cmds, step.Args)
		}
	}
	return cmds
}

// Executor runs batches of commands against a single binary.
type Executor struct {
	// Binary is the program every step is passed to, e.g. "multipass".
	Binary string
	// Runner spawns the processes.
	Runner Runner
	// Parallel bounds concurrently running tasks; zero or less means unbounded.
	Parallel int
	// DryRun logs steps instead of running them.
	DryRun bool
	// Log receives dispatch and failure events.
	Log zerolog.Logger
}

// NewExecutor creates an executor that runs binary on the local host.
func NewExecutor(binary string, log zerolog.Logger) *Executor {
	return &Executor{
		Binary: binary,
		Runner: ExecRunner{},
		Log:    log,
	}
}

// Run executes tasks concurrently and waits for all of them.
//
// The returned report always holds one result per task. The error is non-nil
// only under the Await policy when at least one task failed.
func (e *Executor) Run(ctx context.Context, policy Policy, tasks []Task) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Policy:  policy,
		Results: make([]Result, len(tasks)),
	}
	log := e.Log.With().Str("run", report.RunID).Logger()

	var g errgroup.Group
	if e.Parallel > 0 {
		g.SetLimit(e.Parallel)
	}

	for i, task := range tasks {
		g.Go(func() error {
			report.Results[i] = e.runTask(ctx, log, task)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range report.Failed() {
		if policy == Await {
			log.Error().Str("task", res.Task).Err(res.Err).Msg("task failed")
			errs = append(errs, fmt.Errorf("%s: %w", res.Task, res.Err))
		} else {
			log.Warn().Str("task", res.Task).Err(res.Err).Msg("task failed, continuing")
		}
	}

	if len(errs) > 0 {
		return report, fmt.Errorf("%d of %d tasks failed: %w", len(errs), len(tasks), errors.Join(errs...))
	}
	return report, nil
}

// runTask runs the steps of a task in order and stops at the first failure.
func (e *Executor) runTask(ctx context.Context, log zerolog.Logger, task Task) Result {
	result := Result{Task: task.Name, Steps: make([]StepResult, 0, len(task.Steps))}

	for _, args := range task.Steps {
		cmdline := e.Binary + " " + strings.Join(args, " ")

		if e.DryRun {
			log.Info().Str("task", task.Name).Msgf("would run: %s", cmdline)
			result.Steps = append(result.Steps, StepResult{Args: args, DryRun: true})
			continue
		}

		if err := ctx.Err(); err != nil {
			result.Err = fmt.Errorf("%s: %w", cmdline, err)
			return result
		}

		log.Info().Str("task", task.Name).Msgf("running: %s", cmdline)
		stdout, stderr, exitCode, err := e.Runner.Run(ctx, e.Binary, args...)
		step := StepResult{
			Args:     args,
			ExitCode: exitCode,
			Stdout:   stdout,
			Stderr:   stderr,
			Err:      err,
		}
		result.Steps = append(result.Steps, step)

		if err != nil || exitCode != 0 {
			result.Err = stepError(cmdline, step)
			return result
		}
		log.Debug().Str("task", task.Name).Bytes("stdout", stdout).Msgf("finished: %s", cmdline)
	}

	return result
}

func stepError(cmdline string, step StepResult) error {
	msg := strings.TrimSpace(string(step.Stderr))
	if msg == "" && step.Err != nil {
		msg = step.Err.Error()
	}
	if msg == "" {
		return fmt.Errorf("%s exited with status %d", cmdline, step.ExitCode)
	}
	return fmt.Errorf("%s exited with status %d: %s", cmdline, step.ExitCode, msg)
}
