package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("creates valid task", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask(userID, "Buy milk", "2% if they have it")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, userID, task.UserID)
		assert.Equal(t, "Buy milk", task.Title)
		assert.Equal(t, "2% if they have it", task.Description)
		assert.False(t, task.Completed)
		assert.False(t, task.CreatedAt.IsZero())
		assert.Equal(t, task.CreatedAt, task.UpdatedAt)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(userID, "", "desc")
		assert.ErrorIs(t, err, ErrTaskTitleEmpty)
	})

	t.Run("rejects whitespace title", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(userID, "   ", "desc")
		assert.ErrorIs(t, err, ErrTaskTitleEmpty)
	})

	t.Run("rejects overlong title", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(userID, strings.Repeat("x", maxTaskTitleLength+1), "")
		assert.ErrorIs(t, err, ErrTaskTitleTooLong)
	})

	t.Run("rejects nil user ID", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(uuid.Nil, "Buy milk", "")
		assert.ErrorIs(t, err, ErrTaskUserIDEmpty)
	})
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{
			name:    "missing ID",
			task:    Task{UserID: uuid.New(), Title: "t"},
			wantErr: ErrTaskIDEmpty,
		},
		{
			name:    "missing user ID",
			task:    Task{ID: uuid.New(), Title: "t"},
			wantErr: ErrTaskUserIDEmpty,
		},
		{
			name:    "missing title",
			task:    Task{ID: uuid.New(), UserID: uuid.New()},
			wantErr: ErrTaskTitleEmpty,
		},
		{
			name: "valid",
			task: Task{ID: uuid.New(), UserID: uuid.New(), Title: "t"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.task.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskUpdate(t *testing.T) {
	t.Parallel()

	t.Run("applies new values and bumps UpdatedAt", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask(uuid.New(), "Buy milk", "")
		require.NoError(t, err)
		before := task.UpdatedAt

		err = task.Update("Buy oat milk", "the barista kind", true)
		require.NoError(t, err)

		assert.Equal(t, "Buy oat milk", task.Title)
		assert.Equal(t, "the barista kind", task.Description)
		assert.True(t, task.Completed)
		assert.False(t, task.UpdatedAt.Before(before))
	})

	t.Run("invalid update leaves task unchanged", func(t *testing.T) {
		t.Parallel()

		task, err := NewTask(uuid.New(), "Buy milk", "original")
		require.NoError(t, err)

		err = task.Update("", "changed", true)
		assert.ErrorIs(t, err, ErrTaskTitleEmpty)
		assert.Equal(t, "Buy milk", task.Title)
		assert.Equal(t, "original", task.Description)
		assert.False(t, task.Completed)
	})
}
