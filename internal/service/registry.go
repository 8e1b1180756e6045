package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/backend"
	"github.com/Strob0t/agentbridge/internal/domain/task"
	"github.com/Strob0t/agentbridge/internal/port/agentbackend"
	"github.com/Strob0t/agentbridge/internal/procgroup"
)

// pipeDrainDelay bounds how long Wait keeps reading stdout/stderr after the
// backend exits, for helpers that escaped the process group holding the pipes.
const pipeDrainDelay = 5 * time.Second

// RegistryConfig holds the TaskRegistry tuning knobs.
type RegistryConfig struct {
	DefaultTimeout time.Duration
	AutoApprove    bool
	Retention      time.Duration
	KillGrace      time.Duration
	PreviewLen     int
}

// RegistryOption customizes a TaskRegistry.
type RegistryOption func(*TaskRegistry)

// WithMetrics records task metrics on m.
func WithMetrics(m *cfotel.Metrics) RegistryOption {
	return func(r *TaskRegistry) { r.metrics = m }
}

// WithProcessController replaces the platform process-group controller.
func WithProcessController(c procgroup.Controller) RegistryOption {
	return func(r *TaskRegistry) { r.procs = c }
}

// WithClock replaces time.Now for task timestamps and retention.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *TaskRegistry) { r.now = now }
}

// entry pairs a task with the channels its waiters block on.
type entry struct {
	task   *task.Task
	done   chan struct{} // closed on the terminal transition
	exited chan struct{} // closed once the process has been reaped
	span   trace.Span
}

// TaskRegistry spawns backend processes and tracks them from start to a
// terminal state. All task state lives behind mu; nothing blocks while holding it.
type TaskRegistry struct {
	cfg      RegistryConfig
	backends []backend.Config
	procs    procgroup.Controller
	metrics  *cfotel.Metrics
	now      func() time.Time

	mu    sync.Mutex
	tasks map[string]*entry
}

var _ agentbackend.Runner = (*TaskRegistry)(nil)

// NewTaskRegistry creates a registry over the discovered backends.
func NewTaskRegistry(cfg RegistryConfig, backends []backend.Config, opts ...RegistryOption) *TaskRegistry {
	if cfg.PreviewLen <= 0 {
		cfg.PreviewLen = task.DefaultPreviewLen
	}
	r := &TaskRegistry{
		cfg:      cfg,
		backends: slices.Clone(backends),
		procs:    procgroup.New(),
		now:      time.Now,
		tasks:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backends returns the discovered backends in catalog order.
func (r *TaskRegistry) Backends() []backend.Config {
	return slices.Clone(r.backends)
}

// Backend returns the discovered backend called name.
func (r *TaskRegistry) Backend(name string) (backend.Config, bool) {
	for _, b := range r.backends {
		if b.Name == name {
			return b, true
		}
	}
	return backend.Config{}, false
}

// DefaultTimeout returns the deadline applied to requests without one.
func (r *TaskRegistry) DefaultTimeout() time.Duration {
	return r.cfg.DefaultTimeout
}

// Spawn starts the backend and registers the task as running before returning.
// On any error nothing is registered.
func (r *TaskRegistry) Spawn(ctx context.Context, req agentbackend.SpawnRequest) (string, error) {
	cfg, ok := r.Backend(req.Backend)
	if !ok {
		return "", fmt.Errorf("spawn: %w: %q", domain.ErrUnknownBackend, req.Backend)
	}

	built, err := backend.Build(cfg, backend.Request{
		Prompt:       req.Prompt,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		AutoApprove:  r.cfg.AutoApprove,
	})
	if err != nil {
		return "", fmt.Errorf("spawn %s: %w", cfg.Name, err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}

	// Not CommandContext: the process must outlive the request that started it.
	cmd := exec.Command(built.Binary, built.Args...) //nolint:gosec // binary comes from discovery
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeDrainDelay
	r.procs.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawn %s: %w", cfg.Name, err)
	}

	id := uuid.NewString()
	pid := cmd.Process.Pid
	_, span := cfotel.StartTaskSpan(context.WithoutCancel(ctx), id, cfg.Name, pid)
	e := &entry{
		task:   task.New(id, cfg.Name, task.Preview(req.Prompt, r.cfg.PreviewLen), pid, r.now()),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		span:   span,
	}

	r.mu.Lock()
	r.tasks[id] = e
	r.mu.Unlock()

	r.metrics.TaskStarted(ctx, cfg.Name)
	slog.InfoContext(ctx, "task spawned",
		"task_id", id, "backend", cfg.Name, "pid", pid, "timeout", timeout)

	go r.supervise(e, cmd, &stdout, &stderr, timeout)
	return id, nil
}

// supervise races process exit against the task deadline.
func (r *TaskRegistry) supervise(e *entry, cmd *exec.Cmd, stdout, stderr *bytes.Buffer, timeout time.Duration) {
	defer e.span.End()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		close(e.exited)
		r.resolveExit(e, err, cmd, stdout.String(), stderr.String())

	case <-timer.C:
		pid := cmd.Process.Pid
		slog.Warn("task deadline exceeded", "task_id", e.task.ID, "timeout", timeout)
		if err := r.procs.Terminate(pid); err != nil {
			slog.Warn("terminate timed out task", "task_id", e.task.ID, "error", err)
		}
		// The leader may exit on SIGTERM while helpers in its group ignore it,
		// so the group is force-killed after the grace either way.
		grace := time.NewTimer(r.cfg.KillGrace)
		reaped := false
		select {
		case <-waitCh:
			reaped = true
			<-grace.C
		case <-grace.C:
		}
		if err := r.procs.ForceKill(pid); err != nil {
			slog.Warn("force kill timed out task", "task_id", e.task.ID, "error", err)
		}
		if !reaped {
			<-waitCh
		}
		close(e.exited)
		r.transition(e, func(t *task.Task, now time.Time) error { return t.TimeOut(now) })
	}
}

// resolveExit records how the process ended. A task already killed keeps
// its killed state.
func (r *TaskRegistry) resolveExit(e *entry, waitErr error, cmd *exec.Cmd, stdout, stderr string) {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr), errors.Is(waitErr, exec.ErrWaitDelay):
		code := cmd.ProcessState.ExitCode()
		r.transition(e, func(t *task.Task, now time.Time) error { return t.Complete(code, stdout, stderr, now) })
	default:
		e.span.RecordError(waitErr)
		r.transition(e, func(t *task.Task, now time.Time) error { return t.Fail(waitErr.Error(), now) })
	}
}

// transition applies fn if the task is still running and wakes its waiters.
// It reports whether the task changed state.
func (r *TaskRegistry) transition(e *entry, fn func(*task.Task, time.Time) error) (task.Snapshot, bool) {
	r.mu.Lock()
	if e.task.Status.Terminal() {
		r.mu.Unlock()
		return task.Snapshot{}, false
	}
	if err := fn(e.task, r.now()); err != nil {
		r.mu.Unlock()
		return task.Snapshot{}, false
	}
	close(e.done)
	snap := e.task.Snapshot()
	dur := e.task.Duration
	r.mu.Unlock()

	e.span.SetAttributes(attribute.String("task.status", string(snap.Status)))
	r.metrics.TaskFinished(context.Background(), snap.Backend, string(snap.Status), dur)

	attrs := []any{"task_id", snap.ID, "backend", snap.Backend, "status", snap.Status, "duration", dur}
	if snap.ExitCode != nil {
		attrs = append(attrs, "exit_code", *snap.ExitCode)
	}
	if snap.Error != "" {
		attrs = append(attrs, "error", snap.Error)
	}
	slog.Info("task finished", attrs...)
	return snap, true
}

// Get returns a snapshot of the task.
func (r *TaskRegistry) Get(taskID string) (task.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[taskID]
	if !ok {
		return task.Snapshot{}, false
	}
	return e.task.Snapshot(), true
}

// List prunes expired terminal tasks, then returns the rest newest first.
func (r *TaskRegistry) List() []task.Snapshot {
	r.mu.Lock()
	r.pruneLocked(r.now())
	out := make([]task.Snapshot, 0, len(r.tasks))
	for _, e := range r.tasks {
		out = append(out, e.task.Snapshot())
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b task.Snapshot) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out
}

func (r *TaskRegistry) pruneLocked(now time.Time) {
	for id, e := range r.tasks {
		t := e.task
		if t.Status.Terminal() && now.Sub(t.CompletedAt) > r.cfg.Retention {
			delete(r.tasks, id)
		}
	}
}

// Kill marks a running task killed and terminates its process group, sending
// SIGKILL to the group once the kill grace has passed.
func (r *TaskRegistry) Kill(taskID string) (task.Snapshot, error) {
	r.mu.Lock()
	e, ok := r.tasks[taskID]
	if !ok {
		r.mu.Unlock()
		return task.Snapshot{}, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if e.task.Status.Terminal() {
		snap := e.task.Snapshot()
		r.mu.Unlock()
		return snap, fmt.Errorf("task %s is %s: %w", taskID, snap.Status, domain.ErrInvalidState)
	}
	pid := e.task.PID
	r.mu.Unlock()

	snap, ok := r.transition(e, func(t *task.Task, now time.Time) error { return t.Kill(now) })
	if !ok {
		// Lost the race against a natural exit or the deadline.
		cur, _ := r.Get(taskID)
		return cur, fmt.Errorf("task %s is %s: %w", taskID, cur.Status, domain.ErrInvalidState)
	}

	if err := r.procs.Terminate(pid); err != nil {
		slog.Warn("terminate killed task", "task_id", taskID, "error", err)
	}
	// Escalate even if the leader is already gone: other group members may
	// have ignored SIGTERM. A vanished group is not an error.
	time.AfterFunc(r.cfg.KillGrace, func() {
		if err := r.procs.ForceKill(pid); err != nil {
			slog.Warn("force kill killed task", "task_id", taskID, "error", err)
		}
	})
	return snap, nil
}

// Await blocks until the task is terminal or ctx is done.
func (r *TaskRegistry) Await(ctx context.Context, taskID string) (task.Snapshot, error) {
	r.mu.Lock()
	e, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return task.Snapshot{}, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return task.Snapshot{}, fmt.Errorf("await task %s: %w", taskID, ctx.Err())
	}
	snap, _ := r.Get(taskID)
	return snap, nil
}

// WaitFor blocks until every known task in taskIDs is terminal, the timeout
// elapses, or ctx is done. Unknown IDs are skipped. Snapshots are returned in
// request order whether or not they are terminal.
func (r *TaskRegistry) WaitFor(ctx context.Context, taskIDs []string, timeout time.Duration) []task.Snapshot {
	r.mu.Lock()
	chans := make([]<-chan struct{}, 0, len(taskIDs))
	for _, id := range taskIDs {
		if e, ok := r.tasks[id]; ok {
			chans = append(chans, e.done)
		}
	}
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

wait:
	for _, ch := range chans {
		select {
		case <-ch:
		case <-timer.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	out := make([]task.Snapshot, 0, len(taskIDs))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range taskIDs {
		if e, ok := r.tasks[id]; ok {
			out = append(out, e.task.Snapshot())
		}
	}
	return out
}

// ShutdownAll force-kills every running process group concurrently and waits
// for the processes to be reaped, bounded by ctx. Affected tasks end as killed.
func (r *TaskRegistry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	var running []*entry
	for _, e := range r.tasks {
		if !e.task.Status.Terminal() {
			running = append(running, e)
		}
	}
	r.mu.Unlock()

	if len(running) == 0 {
		return nil
	}
	slog.Info("shutting down running tasks", "count", len(running))

	var g errgroup.Group
	for _, e := range running {
		pid := e.task.PID
		r.transition(e, func(t *task.Task, now time.Time) error { return t.Kill(now) })
		g.Go(func() error {
			if err := r.procs.ForceKill(pid); err != nil {
				return fmt.Errorf("kill task %s: %w", e.task.ID, err)
			}
			select {
			case <-e.exited:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("reap task %s: %w", e.task.ID, ctx.Err())
			}
		})
	}
	return g.Wait()
}
