package taskqueue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/skillet-dev/skillet/pkg/logger"
)

// Queue executes tasks one at a time in enqueue order. A drain goroutine is
// started lazily on the first enqueue and exits when the queue empties.
type Queue struct {
	mu         sync.Mutex
	pending    []*Task
	processing bool

	log *logrus.Entry
}

// StatusSnapshot is a point-in-time view of the queue. Tasks is a copy; it
// never aliases the live pending sequence.
type StatusSnapshot struct {
	Length     int    `json:"length"`
	Processing bool   `json:"processing"`
	Tasks      []Info `json:"tasks"`
}

// New creates an empty queue. A nil log falls back to the global logger.
func New(log *logrus.Entry) *Queue {
	if log == nil {
		log = logger.L
	}
	return &Queue{log: log}
}

// Enqueue appends the task and returns immediately. If no drain loop is
// active, one is started.
func (q *Queue) Enqueue(task *Task) {
	q.mu.Lock()
	q.pending = append(q.pending, task)
	startDrain := !q.processing
	if startDrain {
		q.processing = true
	}
	q.mu.Unlock()

	q.log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"type":    task.Type,
		"target":  task.TargetSkill,
	}).Debug("task enqueued")

	if startDrain {
		go q.drain()
	}
}

// drain pops and executes tasks until the queue is empty. A task failure is
// recorded on the task and never aborts the loop.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(task)
	}
}

func (q *Queue) run(task *Task) {
	task.markProcessing()

	log := q.log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"type":    task.Type,
		"target":  task.TargetSkill,
	})
	log.Debug("task started")

	err := task.execute(context.Background())
	task.settle(err)

	if err != nil {
		log.WithError(err).Warn("task failed")
		return
	}
	log.Debug("task completed")
}

// Status returns a snapshot of the pending tasks and whether a drain loop is
// active.
func (q *Queue) Status() StatusSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := make([]Info, 0, len(q.pending))
	for _, task := range q.pending {
		tasks = append(tasks, task.Snapshot())
	}
	return StatusSnapshot{
		Length:     len(q.pending),
		Processing: q.processing,
		Tasks:      tasks,
	}
}

// Clear discards all tasks not yet dequeued. A task already processing is
// unaffected and settles on its own.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.log.WithField("dropped", dropped).Debug("queue cleared")
	}
}
