package queue

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/domain"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newEntry(taskType domain.TaskType) domain.QueueEntry {
	return domain.QueueEntry{TaskID: domain.NewTaskID(), Type: taskType}
}

func TestNewAppliesDefaultCapacity(t *testing.T) {
	q := New(0, setupTestLogger())
	assert.Equal(t, DefaultCapacity, q.Capacity())

	q = New(5, setupTestLogger())
	assert.Equal(t, 5, q.Capacity())
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	q := New(2, setupTestLogger())

	require.NoError(t, q.Enqueue(newEntry(domain.TaskTypeMask)))
	require.NoError(t, q.Enqueue(newEntry(domain.TaskTypeEmbedding)))

	// Full queue: reject, never block.
	err := q.Enqueue(newEntry(domain.TaskTypeRerank))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Status().Waiting)

	// Draining one slot re-admits.
	_, ok := q.Dequeue()
	require.True(t, ok)
	assert.NoError(t, q.Enqueue(newEntry(domain.TaskTypeRerank)))
}

func TestEnqueueValidatesEntries(t *testing.T) {
	q := New(2, setupTestLogger())
	assert.ErrorIs(t, q.Enqueue(domain.QueueEntry{Type: domain.TaskTypeMask}), domain.ErrEmptyTaskID)
	assert.ErrorIs(t, q.Enqueue(domain.QueueEntry{TaskID: "t", Type: "nope"}), domain.ErrInvalidTaskType)
}

func TestDequeuePreservesFIFOOrder(t *testing.T) {
	q := New(4, setupTestLogger())

	first := newEntry(domain.TaskTypeMask)
	second := newEntry(domain.TaskTypeEmbedding)
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(second))

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, first.TaskID, got.TaskID)

	got, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, second.TaskID, got.TaskID)

	// Empty queue: non-blocking miss.
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestProcessingSetTracksInFlightTasks(t *testing.T) {
	q := New(4, setupTestLogger())

	entry := newEntry(domain.TaskTypeMask)
	require.NoError(t, q.Enqueue(entry))

	status := q.Status()
	assert.Equal(t, 1, status.Waiting)
	assert.Equal(t, 0, status.Processing)

	_, ok := q.Dequeue()
	require.True(t, ok)

	status = q.Status()
	assert.Equal(t, 0, status.Waiting)
	assert.Equal(t, 1, status.Processing)
	assert.Equal(t, []string{entry.TaskID}, status.InFlight)

	q.Complete(entry.TaskID)
	status = q.Status()
	assert.Equal(t, 0, status.Processing)
	assert.Empty(t, status.InFlight)

	// Completing twice is harmless.
	q.Complete(entry.TaskID)
}

func TestWaitingNeverExceedsCapacity(t *testing.T) {
	q := New(3, setupTestLogger())
	for i := 0; i < 10; i++ {
		_ = q.Enqueue(newEntry(domain.TaskTypeMask))
	}
	assert.LessOrEqual(t, q.Status().Waiting, q.Capacity())
}
