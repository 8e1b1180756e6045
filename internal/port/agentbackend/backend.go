// Package agentbackend defines the port through which the tool surface drives
// backend CLI tasks.
package agentbackend

import (
	"context"
	"time"

	"github.com/Strob0t/agentbridge/internal/domain/backend"
	"github.com/Strob0t/agentbridge/internal/domain/task"
)

// SpawnRequest describes one backend invocation.
type SpawnRequest struct {
	Backend      string
	Prompt       string
	Model        string        // empty uses the backend's configured model
	SystemPrompt string        // empty for none
	Timeout      time.Duration // zero uses the runner's default
}

// Runner owns spawned backend processes and their lifecycle.
type Runner interface {
	// Backends returns the discovered backends in preference order.
	Backends() []backend.Config

	// Backend returns the discovered backend called name.
	Backend(name string) (backend.Config, bool)

	// Spawn starts a backend process and returns its task ID once it is registered as running.
	Spawn(ctx context.Context, req SpawnRequest) (string, error)

	// Get returns a snapshot of the task.
	Get(taskID string) (task.Snapshot, bool)

	// List returns all retained tasks, pruning expired terminal ones first.
	List() []task.Snapshot

	// Kill terminates a running task.
	Kill(taskID string) (task.Snapshot, error)

	// Await blocks until the task is terminal or ctx is done.
	Await(ctx context.Context, taskID string) (task.Snapshot, error)

	// WaitFor blocks until every named task is terminal or timeout elapses,
	// then returns the snapshots of the known tasks.
	WaitFor(ctx context.Context, taskIDs []string, timeout time.Duration) []task.Snapshot

	// DefaultTimeout is the per-task deadline applied when a request has none.
	DefaultTimeout() time.Duration
}
