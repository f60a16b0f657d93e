package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_ProcessesTasks(t *testing.T) {
	var processed atomic.Int32
	q := NewQueue(func(ctx context.Context, task *Task) error {
		processed.Add(1)
		return nil
	}, 2, 8)
	q.Start()

	tasks := make([]*Task, 5)
	for i := range tasks {
		tasks[i] = NewTask(TaskRecoveryOTP, nil)
		q.Enqueue(tasks[i])
	}
	for _, task := range tasks {
		require.NoError(t, task.Wait())
	}
	q.Stop()

	assert.Equal(t, int32(5), processed.Load())
}

func TestQueue_HandlerErrorReachesWaiter(t *testing.T) {
	boom := errors.New("smtp down")
	q := NewQueue(func(ctx context.Context, task *Task) error {
		return boom
	}, 1, 1)
	q.Start()
	defer q.Stop()

	task := NewTask(TaskBooking, nil)
	q.Enqueue(task)

	assert.ErrorIs(t, task.Wait(), boom)
}

func TestQueue_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	// Never started, so the single buffer slot fills and stays full.
	q := NewQueue(func(ctx context.Context, task *Task) error { return nil }, 1, 1)

	q.Enqueue(NewTask(TaskBooking, nil))
	dropped := NewTask(TaskBooking, nil)
	q.Enqueue(dropped)

	assert.ErrorIs(t, dropped.Wait(), context.Canceled)
}

func TestQueue_EnqueueAfterStopDropsInsteadOfPanicking(t *testing.T) {
	q := NewQueue(func(ctx context.Context, task *Task) error { return nil }, 1, 4)
	q.Start()
	q.Stop()

	late := NewTask(TaskRecoveryOTP, nil)
	q.Enqueue(late)

	assert.ErrorIs(t, late.Wait(), context.Canceled)
}

func TestQueue_StopTwiceIsIdempotent(t *testing.T) {
	q := NewQueue(func(ctx context.Context, task *Task) error { return nil }, 1, 1)
	q.Start()
	q.Stop()
	q.Stop()
}
