// Package task defines the Task domain entity: one tracked invocation of a backend CLI.
package task

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusKilled    Status = "killed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// DefaultPreviewLen is the default prompt preview length in runes.
const DefaultPreviewLen = 100

// Task is the mutable registry record. Only the registry touches it; callers see Snapshots.
type Task struct {
	ID            string
	Backend       string
	PromptPreview string
	Status        Status
	PID           int
	StartedAt     time.Time

	ExitCode int
	Stdout   string
	Stderr   string
	Error    string
	Duration time.Duration

	CompletedAt time.Time
}

// New creates a running task for a process that has already started.
func New(id, backend, preview string, pid int, startedAt time.Time) *Task {
	return &Task{
		ID:            id,
		Backend:       backend,
		PromptPreview: preview,
		Status:        StatusRunning,
		PID:           pid,
		StartedAt:     startedAt,
	}
}

// Complete records a normal process exit. Exit code may be non-zero.
func (t *Task) Complete(exitCode int, stdout, stderr string, now time.Time) error {
	if err := t.finish(StatusCompleted, now); err != nil {
		return err
	}
	t.ExitCode = exitCode
	t.Stdout = stdout
	t.Stderr = stderr
	return nil
}

// Fail records an OS-level wait error.
func (t *Task) Fail(msg string, now time.Time) error {
	if err := t.finish(StatusFailed, now); err != nil {
		return err
	}
	t.Error = msg
	return nil
}

// TimeOut records that the deadline elapsed before the process exited.
func (t *Task) TimeOut(now time.Time) error {
	return t.finish(StatusTimedOut, now)
}

// Kill records an explicit termination.
func (t *Task) Kill(now time.Time) error {
	return t.finish(StatusKilled, now)
}

// finish performs the single running → terminal transition.
func (t *Task) finish(to Status, now time.Time) error {
	if t.Status.Terminal() {
		return fmt.Errorf("task %s already %s", t.ID, t.Status)
	}
	t.Status = to
	t.Duration = now.Sub(t.StartedAt)
	t.CompletedAt = now
	return nil
}

// Snapshot returns a read-only copy of the current state.
func (t *Task) Snapshot() Snapshot {
	s := Snapshot{
		ID:            t.ID,
		Backend:       t.Backend,
		PromptPreview: t.PromptPreview,
		Status:        t.Status,
		StartedAt:     t.StartedAt,
	}
	switch t.Status {
	case StatusRunning:
		s.PID = t.PID
	case StatusCompleted:
		code := t.ExitCode
		s.ExitCode = &code
		s.Stdout = t.Stdout
		s.Stderr = t.Stderr
		s.DurationMS = t.Duration.Milliseconds()
	case StatusFailed:
		s.Error = t.Error
		s.DurationMS = t.Duration.Milliseconds()
	case StatusTimedOut:
		s.DurationMS = t.Duration.Milliseconds()
	}
	if !t.CompletedAt.IsZero() {
		at := t.CompletedAt
		s.CompletedAt = &at
	}
	return s
}

// Snapshot is the externally visible view of a task.
type Snapshot struct {
	ID            string     `json:"task_id"`
	Backend       string     `json:"backend"`
	PromptPreview string     `json:"prompt_preview"`
	Status        Status     `json:"status"`
	PID           int        `json:"pid,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	ExitCode      *int       `json:"exit_code,omitempty"`
	Stdout        string     `json:"stdout,omitempty"`
	Stderr        string     `json:"stderr,omitempty"`
	Error         string     `json:"error,omitempty"`
	DurationMS    int64      `json:"duration_ms,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Preview truncates prompt to at most n runes, marking truncation with "...".
func Preview(prompt string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLen
	}
	r := []rune(prompt)
	if len(r) <= n {
		return prompt
	}
	return string(r[:n]) + "..."
}
