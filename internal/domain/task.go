package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskUserIDEmpty is returned when a task's user ID is empty or nil.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty or whitespace.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task's title exceeds the maximum length.
	ErrTaskTitleTooLong = errors.New("task title cannot exceed 255 characters")
)

// maxTaskTitleLength matches the VARCHAR(255) column constraint on tasks.title.
const maxTaskTitleLength = 255

// Task represents a single item on a user's task list.
type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new Task owned by the given user.
// It generates a new UUID for the task ID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(userID uuid.UUID, title, description string) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrTaskTitleEmpty
	}

	if len(t.Title) > maxTaskTitleLength {
		return ErrTaskTitleTooLong
	}

	return nil
}

// Update applies new field values to the task and refreshes the UpdatedAt
// timestamp. Returns an error if the resulting task is invalid, in which case
// the task is left unmodified.
func (t *Task) Update(title, description string, completed bool) error {
	origTitle := t.Title
	origDescription := t.Description
	origCompleted := t.Completed

	t.Title = title
	t.Description = description
	t.Completed = completed

	if err := t.Validate(); err != nil {
		t.Title = origTitle
		t.Description = origDescription
		t.Completed = origCompleted
		return err
	}

	t.UpdatedAt = time.Now().UTC()
	return nil
}
