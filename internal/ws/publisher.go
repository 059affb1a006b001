package ws

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/avollmer/taskstream/internal/domain"
	"github.com/avollmer/taskstream/internal/events"
)

// TaskTopic is the broadcast topic every authenticated session joins. Task
// change notifications are not scoped per user; each client filters what it
// renders.
const TaskTopic = "tasks"

// Publisher fans task change events out over the websocket registry. It is
// strictly best-effort: every failure is logged and swallowed, so the
// mutation that triggered the notification succeeds or fails on its own
// merits regardless of broadcast health.
type Publisher struct {
	broadcaster Broadcaster
	logger      *slog.Logger
}

var _ events.TaskEventPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher delivering to the given broadcaster.
func NewPublisher(broadcaster Broadcaster, logger *slog.Logger) *Publisher {
	return &Publisher{
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "ws_publisher")),
	}
}

// OnTaskCreated broadcasts a task_created frame carrying the full task.
func (p *Publisher) OnTaskCreated(ctx context.Context, task *domain.Task) {
	p.publish(ctx, events.NewTaskCreated(task))
}

// OnTaskUpdated broadcasts a task_updated frame carrying the full task.
func (p *Publisher) OnTaskUpdated(ctx context.Context, task *domain.Task) {
	p.publish(ctx, events.NewTaskUpdated(task))
}

// OnTaskDeleted broadcasts a task_deleted frame carrying only the identifier.
func (p *Publisher) OnTaskDeleted(ctx context.Context, taskID uuid.UUID) {
	p.publish(ctx, events.NewTaskDeleted(taskID))
}

func (p *Publisher) publish(_ context.Context, event *events.TaskEvent) {
	if p.broadcaster == nil {
		p.logger.Warn("skipping event broadcast",
			"event_type", event.Type,
			"error", ErrPublishUnavailable)
		return
	}

	frame, err := event.Marshal()
	if err != nil {
		p.logger.Error("failed to serialize event",
			"event_type", event.Type,
			"error", err)
		return
	}

	if err := p.broadcaster.Broadcast(TaskTopic, frame); err != nil {
		p.logger.Warn("event broadcast incomplete",
			"event_type", event.Type,
			"error", err)
	}
}
