// Package taskqueue provides a strictly serializing FIFO queue for mutating
// operations. At most one task body executes at any time, regardless of how
// many goroutines enqueue concurrently; this is the sole mutual-exclusion
// mechanism protecting the skill directory tree. Tasks are transient: they
// are created per call, never persisted, and never replayed.
package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OpType identifies the kind of mutation a task performs.
type OpType string

const (
	// OpCreate creates a new skill directory skeleton.
	OpCreate OpType = "create"
	// OpRename renames a skill and patches its manifest.
	OpRename OpType = "rename"
	// OpEdit writes a file inside a skill directory.
	OpEdit OpType = "edit"
	// OpDelete archives a skill (moves it under the archive root).
	OpDelete OpType = "delete"
	// OpRestore moves an archived skill back online.
	OpRestore OpType = "restore"
)

// TaskStatus is the lifecycle state of a task. Completed and Failed are
// terminal.
type TaskStatus string

const (
	// StatusPending means the task is queued but not yet started.
	StatusPending TaskStatus = "pending"
	// StatusProcessing means the task body is currently executing.
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted means the task body returned without error.
	StatusCompleted TaskStatus = "completed"
	// StatusFailed means the task body returned an error, recorded on the task.
	StatusFailed TaskStatus = "failed"
)

// TimeoutError indicates a caller's wait budget elapsed before the task
// settled. The task keeps running in the background; there is no cancellation.
type TimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s did not settle within %s", e.TaskID, e.Timeout)
}

// Task is one queued, serialized mutation with a tracked lifecycle.
type Task struct {
	ID          string
	Type        OpType
	TargetSkill string
	CreatedAt   time.Time

	execute func(ctx context.Context) error

	mu          sync.Mutex
	status      TaskStatus
	startedAt   time.Time
	completedAt time.Time
	err         error

	done chan struct{}
}

// NewTask creates a pending task whose body is the given closure. The
// closure captures the mutation's concrete arguments.
func NewTask(opType OpType, targetSkill string, execute func(ctx context.Context) error) *Task {
	return &Task{
		ID:          uuid.NewString(),
		Type:        opType,
		TargetSkill: targetSkill,
		CreatedAt:   time.Now(),
		execute:     execute,
		status:      StatusPending,
		done:        make(chan struct{}),
	}
}

// Status returns the task's current lifecycle state.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the error recorded by a failed task, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// StartedAt returns when the task began executing, zero if it has not.
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// CompletedAt returns when the task settled, zero if it has not.
func (t *Task) CompletedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

// Wait blocks until the task settles or the timeout elapses. On timeout the
// task continues running; the caller just stops waiting. After a settle,
// Wait returns the task's recorded error verbatim (nil on success).
func (t *Task) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.Err()
	case <-timer.C:
		return &TimeoutError{TaskID: t.ID, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) markProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusProcessing
	t.startedAt = time.Now()
}

func (t *Task) settle(err error) {
	t.mu.Lock()
	if err != nil {
		t.status = StatusFailed
		t.err = err
	} else {
		t.status = StatusCompleted
	}
	t.completedAt = time.Now()
	t.mu.Unlock()
	close(t.done)
}

// Info is a point-in-time copy of a task's observable state.
type Info struct {
	ID          string     `json:"id"`
	Type        OpType     `json:"type"`
	TargetSkill string     `json:"targetSkill"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   time.Time  `json:"startedAt,omitempty"`
	CompletedAt time.Time  `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Snapshot copies the task's current state.
func (t *Task) Snapshot() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := Info{
		ID:          t.ID,
		Type:        t.Type,
		TargetSkill: t.TargetSkill,
		Status:      t.status,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
	}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}
