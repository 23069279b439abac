package repository

import (
	"context"
	"errors"

	"github.com/davrot/todolist/internal/todo"
)

var (
	ErrNotFound = errors.New("todo not found")
)

// Repository is the persistent table of todos. It performs no ownership
// checks; callers authorize access before reading or mutating a record.
type Repository interface {
	// ListByOwner returns the owner's todos ordered by ascending id.
	ListByOwner(ctx context.Context, owner string) ([]*todo.Todo, error)
	FindByID(ctx context.Context, id int64) (*todo.Todo, error)
	// Insert assigns a fresh id and stores the todo.
	Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error)
	// Update overwrites description, target date and done. Owner is never rewritten.
	Update(ctx context.Context, t *todo.Todo) error
	DeleteByID(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
