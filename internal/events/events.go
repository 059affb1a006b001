package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/avollmer/taskstream/internal/domain"
)

// EventType tags a task-change event.
type EventType string

// The task-change event kinds carried on the wire.
const (
	TaskCreated EventType = "task_created"
	TaskUpdated EventType = "task_updated"
	TaskDeleted EventType = "task_deleted"
)

// TaskEvent is the wire representation of one task change. Created and
// updated events carry the full task; deleted events carry only the task ID.
// A TaskEvent is immutable once constructed and is serialized independently
// for each recipient.
type TaskEvent struct {
	Type   EventType    `json:"type"`
	Task   *domain.Task `json:"task,omitempty"`
	TaskID *uuid.UUID   `json:"task_id,omitempty"`
}

// NewTaskCreated builds the event for a newly persisted task.
func NewTaskCreated(task *domain.Task) *TaskEvent {
	return &TaskEvent{Type: TaskCreated, Task: task}
}

// NewTaskUpdated builds the event for an updated task.
func NewTaskUpdated(task *domain.Task) *TaskEvent {
	return &TaskEvent{Type: TaskUpdated, Task: task}
}

// NewTaskDeleted builds the event for a deleted task. Only the identifier
// survives the deletion, so that is all the event carries.
func NewTaskDeleted(taskID uuid.UUID) *TaskEvent {
	return &TaskEvent{Type: TaskDeleted, TaskID: &taskID}
}

// Marshal serializes the event to its JSON wire frame.
func (e *TaskEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// TaskEventPublisher is implemented by the realtime layer and invoked by the
// task service immediately after each successful persistence operation.
//
// Implementations must never propagate failures to the caller: broadcast is a
// best-effort side channel, not part of the mutation's atomicity guarantee.
type TaskEventPublisher interface {
	// OnTaskCreated announces a newly created task.
	OnTaskCreated(ctx context.Context, task *domain.Task)

	// OnTaskUpdated announces an updated task.
	OnTaskUpdated(ctx context.Context, task *domain.Task)

	// OnTaskDeleted announces a deleted task by its identifier.
	OnTaskDeleted(ctx context.Context, taskID uuid.UUID)
}

// NopPublisher is a TaskEventPublisher that discards every event. Useful in
// tests and in wiring paths where the realtime layer is disabled.
type NopPublisher struct{}

// Ensure NopPublisher implements TaskEventPublisher
var _ TaskEventPublisher = (*NopPublisher)(nil)

// OnTaskCreated implements TaskEventPublisher.
func (NopPublisher) OnTaskCreated(context.Context, *domain.Task) {}

// OnTaskUpdated implements TaskEventPublisher.
func (NopPublisher) OnTaskUpdated(context.Context, *domain.Task) {}

// OnTaskDeleted implements TaskEventPublisher.
func (NopPublisher) OnTaskDeleted(context.Context, uuid.UUID) {}
