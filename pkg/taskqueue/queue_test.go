package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New(nil)

	var mu sync.Mutex
	var order []int

	const n = 50
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = NewTask(OpEdit, "demo", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	for _, task := range tasks {
		q.Enqueue(task)
	}
	for _, task := range tasks {
		require.NoError(t, task.Wait(context.Background(), 5*time.Second))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestSingleInFlight(t *testing.T) {
	q := New(nil)

	var active, maxActive int32
	var wg sync.WaitGroup

	const n = 20
	for i := 0; i < n; i++ {
		wg.Add(1)
		task := NewTask(OpCreate, "demo", func(context.Context) error {
			cur := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		})
		// concurrent enqueue from many goroutines
		go func() {
			defer wg.Done()
			q.Enqueue(task)
			assert.NoError(t, task.Wait(context.Background(), 5*time.Second))
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestFailureDoesNotStopDrain(t *testing.T) {
	q := New(nil)

	failing := NewTask(OpDelete, "broken", func(context.Context) error {
		return errors.New("disk on fire")
	})
	succeeding := NewTask(OpCreate, "fine", func(context.Context) error {
		return nil
	})

	q.Enqueue(failing)
	q.Enqueue(succeeding)

	err := failing.Wait(context.Background(), 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, StatusFailed, failing.Status())
	assert.False(t, failing.CompletedAt().IsZero())

	require.NoError(t, succeeding.Wait(context.Background(), 5*time.Second))
	assert.Equal(t, StatusCompleted, succeeding.Status())
}

func TestWaitTimeout(t *testing.T) {
	q := New(nil)

	release := make(chan struct{})
	slow := NewTask(OpRename, "slow", func(context.Context) error {
		<-release
		return nil
	})
	q.Enqueue(slow)

	err := slow.Wait(context.Background(), 20*time.Millisecond)
	require.Error(t, err)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, slow.ID, timeout.TaskID)

	// the task keeps running and settles after release
	close(release)
	require.NoError(t, slow.Wait(context.Background(), 5*time.Second))
	assert.Equal(t, StatusCompleted, slow.Status())
}

func TestStatusSnapshot(t *testing.T) {
	q := New(nil)

	release := make(chan struct{})
	blocker := NewTask(OpCreate, "blocker", func(context.Context) error {
		<-release
		return nil
	})
	queued := NewTask(OpEdit, "queued", func(context.Context) error { return nil })

	q.Enqueue(blocker)
	// wait until the blocker is actually processing so "queued" stays pending
	require.Eventually(t, func() bool {
		return blocker.Status() == StatusProcessing
	}, time.Second, 5*time.Millisecond)
	q.Enqueue(queued)

	status := q.Status()
	assert.Equal(t, 1, status.Length)
	assert.True(t, status.Processing)
	require.Len(t, status.Tasks, 1)
	assert.Equal(t, queued.ID, status.Tasks[0].ID)
	assert.Equal(t, StatusPending, status.Tasks[0].Status)

	// the snapshot is a copy; mutating it must not touch the queue
	status.Tasks[0].TargetSkill = "mutated"
	assert.Equal(t, "queued", queued.TargetSkill)

	close(release)
	require.NoError(t, blocker.Wait(context.Background(), 5*time.Second))
	require.NoError(t, queued.Wait(context.Background(), 5*time.Second))

	status = q.Status()
	assert.Equal(t, 0, status.Length)
}

func TestClear(t *testing.T) {
	q := New(nil)

	release := make(chan struct{})
	var executed int32

	blocker := NewTask(OpCreate, "blocker", func(context.Context) error {
		<-release
		return nil
	})
	q.Enqueue(blocker)
	require.Eventually(t, func() bool {
		return blocker.Status() == StatusProcessing
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		q.Enqueue(NewTask(OpEdit, "pending", func(context.Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		}))
	}

	q.Clear()
	assert.Equal(t, 0, q.Status().Length)

	// the in-flight task is unaffected by Clear
	close(release)
	require.NoError(t, blocker.Wait(context.Background(), 5*time.Second))
	assert.Equal(t, StatusCompleted, blocker.Status())
	assert.Equal(t, int32(0), atomic.LoadInt32(&executed))
}

func TestWaitContextCancel(t *testing.T) {
	q := New(nil)

	release := make(chan struct{})
	slow := NewTask(OpRestore, "slow", func(context.Context) error {
		<-release
		return nil
	})
	q.Enqueue(slow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := slow.Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, slow.Wait(context.Background(), 5*time.Second))
}
