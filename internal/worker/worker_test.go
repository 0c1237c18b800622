package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/mask"
	"github.com/nexusdata/nexusdata/internal/queue"
	"github.com/nexusdata/nexusdata/internal/service"
	"github.com/nexusdata/nexusdata/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := []float64{0, 0, 0}
	for i, r := range []rune(text) {
		vec[i%3] += float64(r % 7)
	}
	return vec, nil
}

func newHandlers(taskStore store.TaskStore, finalizer *Finalizer) *Handlers {
	logger := testLogger()
	embedder := fixedEmbedder{}
	return NewHandlers(
		taskStore,
		mask.NewEngine(nil, nil, "worker-test-passphrase", logger),
		service.NewEmbeddingService(embedder, logger),
		service.NewRerankService(embedder, logger),
		finalizer,
		logger,
	)
}

func mustCreate(t *testing.T, taskStore store.TaskStore, taskType domain.TaskType, handle string, fields store.Fields) *store.Record {
	t.Helper()
	rec, err := store.NewRecord(domain.NewTaskID(), taskType, handle, fields)
	require.NoError(t, err)
	require.NoError(t, taskStore.Create(context.Background(), rec))
	return rec
}

func TestHandleMissingRecordIsNoOp(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	handlers := newHandlers(taskStore, NewFinalizer(taskStore, time.Second, testLogger()))

	handlers.Handle(context.Background(), domain.QueueEntry{TaskID: "gone", Type: domain.TaskTypeMask})
}

func TestHandleEmbeddingCompletesAndKeepsRecordForPolling(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	handlers := newHandlers(taskStore, NewFinalizer(taskStore, time.Second, testLogger()))
	rec := mustCreate(t, taskStore, domain.TaskTypeEmbedding, "", store.Fields{"text": "hello world"})

	handlers.Handle(context.Background(), domain.QueueEntry{TaskID: rec.TaskID, Type: domain.TaskTypeEmbedding})

	got, err := taskStore.Get(context.Background(), rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.NotNil(t, got.Fields["embedding"])
}

func TestHandleRerankEmptyCandidatesCompletes(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	handlers := newHandlers(taskStore, NewFinalizer(taskStore, time.Second, testLogger()))
	rec := mustCreate(t, taskStore, domain.TaskTypeRerank, "", store.Fields{
		"query": "anything",
		"texts": []any{},
	})

	handlers.Handle(context.Background(), domain.QueueEntry{TaskID: rec.TaskID, Type: domain.TaskTypeRerank})

	got, err := taskStore.Get(context.Background(), rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	rankings, ok := got.Fields["rankings"].([]service.Ranking)
	require.True(t, ok)
	assert.Empty(t, rankings)
}

func TestHandleMaskUnsupportedStrategyFails(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	handlers := newHandlers(taskStore, NewFinalizer(taskStore, time.Second, testLogger()))
	rec := mustCreate(t, taskStore, domain.TaskTypeMask, "", store.Fields{
		"text":     "一段文本",
		"strategy": "bogus",
	})

	handlers.Handle(context.Background(), domain.QueueEntry{TaskID: rec.TaskID, Type: domain.TaskTypeMask})

	got, err := taskStore.Get(context.Background(), rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Fields["error"], "bogus")
}

func TestFinalizeDeliversCallbackAndDeletesRecord(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	taskStore := store.NewMemoryTaskStore()
	finalizer := NewFinalizer(taskStore, time.Second, testLogger())
	rec := mustCreate(t, taskStore, domain.TaskTypeEmbedding, server.URL, store.Fields{"text": "x"})

	finalizer.Finalize(context.Background(), rec, domain.TaskStatusCompleted, store.Fields{"embedding": []float64{1, 2}})

	require.NotNil(t, received)
	assert.Equal(t, rec.TaskID, received["task_id"])
	assert.Equal(t, "completed", received["status"])
	assert.NotNil(t, received["embedding"])

	_, err := taskStore.Get(context.Background(), rec.TaskID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFinalizeNon2xxLeavesRecordInTerminalState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	taskStore := store.NewMemoryTaskStore()
	finalizer := NewFinalizer(taskStore, time.Second, testLogger())
	rec := mustCreate(t, taskStore, domain.TaskTypeMask, server.URL, store.Fields{"text": "x"})

	finalizer.Finalize(context.Background(), rec, domain.TaskStatusFailed, store.Fields{"error": "boom"})

	got, err := taskStore.Get(context.Background(), rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Fields["error"])
}

func TestFinalizeWithoutHandleKeepsRecord(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	finalizer := NewFinalizer(taskStore, time.Second, testLogger())
	rec := mustCreate(t, taskStore, domain.TaskTypeRerank, "", store.Fields{"query": "q"})

	finalizer.Finalize(context.Background(), rec, domain.TaskStatusCompleted, store.Fields{"rankings": []service.Ranking{}})

	got, err := taskStore.Get(context.Background(), rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
}

func TestDispatcherProcessesEntriesAndAcknowledges(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	q := queue.New(4, testLogger())
	handlers := newHandlers(taskStore, NewFinalizer(taskStore, time.Second, testLogger()))
	dispatcher := NewDispatcher(q, handlers, 5*time.Millisecond, testLogger())

	rec := mustCreate(t, taskStore, domain.TaskTypeEmbedding, "", store.Fields{"text": "dispatch me"})
	require.NoError(t, q.Enqueue(domain.QueueEntry{TaskID: rec.TaskID, Type: domain.TaskTypeEmbedding}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		got, err := taskStore.Get(context.Background(), rec.TaskID)
		return err == nil && got.Status == domain.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		status := q.Status()
		return status.Waiting == 0 && status.Processing == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestDispatcherSurvivesHandlerPanic(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	q := queue.New(4, testLogger())
	// A nil engine makes the mask path dereference a nil generator.
	handlers := NewHandlers(taskStore, nil, nil, nil, NewFinalizer(taskStore, time.Second, testLogger()), testLogger())
	dispatcher := NewDispatcher(q, handlers, 5*time.Millisecond, testLogger())

	bad := mustCreate(t, taskStore, domain.TaskTypeMask, "", store.Fields{
		"text":     "电话13812345678",
		"strategy": "similar",
		"schema":   []string{"手机号"},
	})
	require.NoError(t, q.Enqueue(domain.QueueEntry{TaskID: bad.TaskID, Type: domain.TaskTypeMask}))

	entry, ok := q.Dequeue()
	require.True(t, ok)
	dispatcher.process(context.Background(), entry)

	status := q.Status()
	assert.Zero(t, status.Processing, "panicked entry must still be acknowledged")
}

func TestSweeperPurgesAgedRecords(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	old := mustCreate(t, taskStore, domain.TaskTypeMask, "", store.Fields{"text": "stale"})

	time.Sleep(5 * time.Millisecond)
	sweeper := NewSweeper(taskStore, 0, time.Hour, testLogger())
	sweeper.Sweep(context.Background())

	_, err := taskStore.Get(context.Background(), old.TaskID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
