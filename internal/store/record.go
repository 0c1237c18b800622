package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexusdata/nexusdata/internal/domain"
)

// Fields is the type-specific document body of a task record, plus the
// partial-update payload accepted by TaskStore.Update. A "status" key in an
// update payload changes the record status; every other key merges into the
// record's fields with last-write-wins semantics.
type Fields map[string]any

// Reserved top-level record keys. They serialize alongside the fields but
// are never stored inside them.
const (
	keyTaskID    = "task_id"
	keyType      = "type"
	KeyStatus    = "status"
	keyHandle    = "handle"
	keyCreatedAt = "created_at"
	keyUpdatedAt = "updated_at"
)

// Record is one durable task document. It serializes as a flat JSON object:
// the reserved keys above at the top level, merged with the type-specific
// Fields (input payload and, once completed, the result payload).
type Record struct {
	TaskID    string
	Type      domain.TaskType
	Status    domain.TaskStatus
	Handle    string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord builds a pending record with fresh timestamps. The fields map is
// copied so callers can keep mutating their own.
func NewRecord(taskID string, taskType domain.TaskType, handle string, fields Fields) (*Record, error) {
	if taskID == "" {
		return nil, domain.ErrEmptyTaskID
	}
	if !domain.IsValidTaskType(taskType) {
		return nil, domain.ErrInvalidTaskType
	}

	ts := domain.NewTimestamps()
	rec := &Record{
		TaskID:    taskID,
		Type:      taskType,
		Status:    domain.TaskStatusPending,
		Handle:    handle,
		Fields:    make(Fields, len(fields)),
		CreatedAt: ts.CreatedAt,
		UpdatedAt: ts.UpdatedAt,
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	return rec, nil
}

// Apply merges a partial update into the record and bumps the updated
// timestamp. A "status" key is interpreted as a status transition and
// validated against the forward-only state machine; all other keys merge
// into Fields.
func (r *Record) Apply(changes Fields) error {
	for k, v := range changes {
		switch k {
		case KeyStatus:
			next, err := statusValue(v)
			if err != nil {
				return err
			}
			if err := r.Status.CanTransitionTo(next); err != nil {
				return fmt.Errorf("task %s: %w", r.TaskID, err)
			}
			r.Status = next
		case keyTaskID, keyType, keyCreatedAt, keyUpdatedAt:
			return fmt.Errorf("field %q is immutable", k)
		case keyHandle:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("field %q must be a string", k)
			}
			r.Handle = s
		default:
			if r.Fields == nil {
				r.Fields = make(Fields)
			}
			r.Fields[k] = v
		}
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a deep-enough copy for handing records across goroutine
// boundaries: the fields map is copied, the values are shared.
func (r *Record) Clone() *Record {
	dup := *r
	dup.Fields = make(Fields, len(r.Fields))
	for k, v := range r.Fields {
		dup.Fields[k] = v
	}
	return &dup
}

// MarshalJSON flattens the record into a single JSON object, mirroring the
// wire and storage shape: reserved keys plus the type-specific fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(r.Fields)+6)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[keyTaskID] = r.TaskID
	doc[keyType] = string(r.Type)
	doc[KeyStatus] = string(r.Status)
	if r.Handle != "" {
		doc[keyHandle] = r.Handle
	}
	doc[keyCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	doc[keyUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(doc)
}

// UnmarshalJSON is the inverse of MarshalJSON: reserved keys populate the
// struct fields, everything else lands in Fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	rec := Record{Fields: make(Fields)}
	for k, v := range doc {
		switch k {
		case keyTaskID:
			rec.TaskID, _ = v.(string)
		case keyType:
			s, _ := v.(string)
			rec.Type = domain.TaskType(s)
		case KeyStatus:
			s, _ := v.(string)
			rec.Status = domain.TaskStatus(s)
		case keyHandle:
			rec.Handle, _ = v.(string)
		case keyCreatedAt:
			t, err := timeValue(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", keyCreatedAt, err)
			}
			rec.CreatedAt = t
		case keyUpdatedAt:
			t, err := timeValue(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", keyUpdatedAt, err)
			}
			rec.UpdatedAt = t
		default:
			rec.Fields[k] = v
		}
	}

	*r = rec
	return nil
}

func statusValue(v any) (domain.TaskStatus, error) {
	switch s := v.(type) {
	case domain.TaskStatus:
		return s, nil
	case string:
		return domain.TaskStatus(s), nil
	default:
		return "", domain.ErrInvalidTaskStatus
	}
}

func timeValue(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected RFC3339 string, got %T", v)
	}
	return time.Parse(time.RFC3339Nano, s)
}
