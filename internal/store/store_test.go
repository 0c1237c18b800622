package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/domain"
)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	rec, err := NewRecord(domain.NewTaskID(), domain.TaskTypeMask, "", Fields{
		"original_text": "张三的手机号是13812345678",
		"mask_type":     "asterisk",
	})
	require.NoError(t, err)
	return rec
}

func TestNewRecordValidation(t *testing.T) {
	_, err := NewRecord("", domain.TaskTypeMask, "", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyTaskID)

	_, err = NewRecord(domain.NewTaskID(), domain.TaskType("ocr"), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTaskType)

	rec, err := NewRecord(domain.NewTaskID(), domain.TaskTypeRerank, "http://cb.local/hook", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, rec.Status)
	assert.Equal(t, "http://cb.local/hook", rec.Handle)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestRecordApplyStatusTransitions(t *testing.T) {
	rec := newTestRecord(t)

	require.NoError(t, rec.Apply(Fields{"status": domain.TaskStatusProcessing}))
	assert.Equal(t, domain.TaskStatusProcessing, rec.Status)

	require.NoError(t, rec.Apply(Fields{
		"status":      "completed",
		"masked_text": "**的手机号是***********",
	}))
	assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
	assert.Equal(t, "**的手机号是***********", rec.Fields["masked_text"])

	// Terminal states are absorbing.
	err := rec.Apply(Fields{"status": domain.TaskStatusFailed})
	assert.ErrorIs(t, err, domain.ErrTerminalTaskStatus)
	assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
}

func TestRecordApplyRejectsImmutableKeys(t *testing.T) {
	rec := newTestRecord(t)
	assert.Error(t, rec.Apply(Fields{"task_id": "other"}))
	assert.Error(t, rec.Apply(Fields{"created_at": "2020-01-01T00:00:00Z"}))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := newTestRecord(t)
	rec.Handle = "http://cb.local/hook"

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	// The document is flat: fields sit next to the reserved keys.
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, rec.TaskID, doc["task_id"])
	assert.Equal(t, "pending", doc["status"])
	assert.Equal(t, "张三的手机号是13812345678", doc["original_text"])

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec.TaskID, decoded.TaskID)
	assert.Equal(t, rec.Status, decoded.Status)
	assert.Equal(t, rec.Handle, decoded.Handle)
	assert.Equal(t, "asterisk", decoded.Fields["mask_type"])
	_, reserved := decoded.Fields["task_id"]
	assert.False(t, reserved, "reserved keys must not leak into fields")
}

func TestMemoryTaskStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	rec := newTestRecord(t)

	require.NoError(t, s.Create(ctx, rec))
	assert.ErrorIs(t, s.Create(ctx, rec), ErrDuplicate)

	got, err := s.Get(ctx, rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, rec.TaskID, got.TaskID)

	// Mutating the returned copy must not touch the stored record.
	got.Fields["original_text"] = "tampered"
	again, err := s.Get(ctx, rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "张三的手机号是13812345678", again.Fields["original_text"])

	require.NoError(t, s.Update(ctx, rec.TaskID, Fields{"status": domain.TaskStatusProcessing}))
	got, err = s.Get(ctx, rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)

	require.NoError(t, s.Delete(ctx, rec.TaskID))
	_, err = s.Get(ctx, rec.TaskID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.TaskID), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, rec.TaskID, Fields{"status": "failed"}), ErrNotFound)
}

func TestMemoryTaskStoreDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	old := newTestRecord(t)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.Create(ctx, old))

	fresh := newTestRecord(t)
	require.NoError(t, s.Create(ctx, fresh))

	removed, err := s.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, old.TaskID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, fresh.TaskID)
	assert.NoError(t, err)
}
