package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/avollmer/taskstream/internal/domain"
	"github.com/avollmer/taskstream/internal/events"
	"github.com/avollmer/taskstream/internal/store"
)

// TaskService provides task management operations scoped to an owning user.
type TaskService interface {
	// CreateTask creates a new task owned by the given user.
	CreateTask(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Task, error)

	// GetTask retrieves a task by ID. Returns ErrNotOwned if the task exists
	// but belongs to a different user.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// ListTasks returns the user's tasks, newest first. A non-empty search
	// term restricts results to tasks whose title or description contains it.
	ListTasks(ctx context.Context, userID uuid.UUID, search string) ([]*domain.Task, error)

	// UpdateTask replaces the mutable fields of a task owned by the user.
	UpdateTask(
		ctx context.Context,
		userID, taskID uuid.UUID,
		title, description string,
		completed bool,
	) (*domain.Task, error)

	// DeleteTask removes a task owned by the user.
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	taskStore store.TaskStore
	publisher events.TaskEventPublisher
	db        *sql.DB
	logger    *slog.Logger
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a new TaskService. The publisher receives a
// notification after every successful mutation; publisher implementations
// are best-effort and never cause the mutation to fail.
func NewTaskService(
	taskStore store.TaskStore,
	publisher events.TaskEventPublisher,
	db *sql.DB,
	logger *slog.Logger,
) *TaskServiceImpl {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TaskServiceImpl{
		taskStore: taskStore,
		publisher: publisher,
		db:        db,
		logger:    logger.With(slog.String("component", "task_service")),
	}
}

// CreateTask creates and persists a new task, then announces it.
func (s *TaskServiceImpl) CreateTask(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (*domain.Task, error) {
	task, err := domain.NewTask(userID, title, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		s.logger.Error("failed to save task",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Debug("task created",
		"task_id", task.ID,
		"user_id", userID)

	s.publisher.OnTaskCreated(ctx, task)
	return task, nil
}

// GetTask retrieves a single task, enforcing ownership.
func (s *TaskServiceImpl) GetTask(
	ctx context.Context,
	userID, taskID uuid.UUID,
) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task",
				"error", err,
				"task_id", taskID)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	if task.UserID != userID {
		return nil, ErrNotOwned
	}
	return task, nil
}

// ListTasks returns the user's tasks, optionally filtered by a search term.
func (s *TaskServiceImpl) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	search string,
) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListByUser(ctx, userID, search)
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies new field values to an owned task and announces the change.
func (s *TaskServiceImpl) UpdateTask(
	ctx context.Context,
	userID, taskID uuid.UUID,
	title, description string,
	completed bool,
) (*domain.Task, error) {
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Update(title, description, completed); err != nil {
		return nil, fmt.Errorf("invalid task update: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		s.logger.Error("failed to update task",
			"error", err,
			"task_id", taskID)
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Debug("task updated",
		"task_id", taskID,
		"user_id", userID)

	s.publisher.OnTaskUpdated(ctx, task)
	return task, nil
}

// DeleteTask removes an owned task and announces the deletion.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	// Ownership check first so a foreign task is reported the same way as a
	// missing one.
	if _, err := s.GetTask(ctx, userID, taskID); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Delete(ctx, taskID)
	})
	if err != nil {
		s.logger.Error("failed to delete task",
			"error", err,
			"task_id", taskID)
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Debug("task deleted",
		"task_id", taskID,
		"user_id", userID)

	s.publisher.OnTaskDeleted(ctx, taskID)
	return nil
}
