package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davrot/todolist/internal/todo"
	"github.com/davrot/todolist/internal/todo/repository"
	"github.com/davrot/todolist/internal/todo/validation"
	"github.com/davrot/todolist/pkg/logger"
)

var (
	// ErrNotFound covers both a missing record and a record owned by someone
	// else; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps store failures. The triggering mutation must be
	// treated as not applied.
	ErrPersistence = errors.New("persistence failure")
)

var log = logger.Named("todo")

// Input is the user-editable part of a todo as submitted from a form.
// TargetDate is the raw yyyy-MM-dd text.
type Input struct {
	Description string
	TargetDate  string
	Done        bool
}

// Service defines the todo operations used by the handler layer. Every
// operation takes the caller's username explicitly.
type Service interface {
	List(ctx context.Context, owner string) ([]*todo.Todo, error)
	Create(ctx context.Context, owner string, in Input) (*todo.Todo, error)
	// Authorize loads a todo for the given owner, returning ErrNotFound when it
	// does not exist or belongs to another user.
	Authorize(ctx context.Context, owner string, id int64) (*todo.Todo, error)
	Update(ctx context.Context, owner string, id int64, in Input) (*todo.Todo, error)
	Delete(ctx context.Context, owner string, id int64) error
	MinDescriptionLength() int
}

// Option customises a service.
type Option func(*todoService)

// WithClock overrides the clock used to default target dates to today.
func WithClock(now func() time.Time) Option {
	return func(s *todoService) { s.now = now }
}

// New returns a Service over the given repository and validation gate.
func New(repo repository.Repository, gate *validation.Gate, opts ...Option) Service {
	s := &todoService{repo: repo, gate: gate, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by a fresh in-memory repository.
func NewMemoryService(minDescription int, opts ...Option) Service {
	return New(repository.NewMemoryRepo(), validation.NewGate(minDescription), opts...)
}

type todoService struct {
	repo repository.Repository
	gate *validation.Gate
	now  func() time.Time
}

func (s *todoService) MinDescriptionLength() int { return s.gate.MinDescriptionLength() }

func (s *todoService) List(ctx context.Context, owner string) ([]*todo.Todo, error) {
	list, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.persistence("list", err)
	}
	return list, nil
}

func (s *todoService) Create(ctx context.Context, owner string, in Input) (*todo.Todo, error) {
	target, err := todo.ParseDate(in.TargetDate)
	if err != nil {
		target = todo.DateOf(s.now())
	}
	candidate := &todo.Todo{
		Owner:       owner,
		Description: in.Description,
		TargetDate:  target,
		Done:        false,
	}
	if err := s.gate.Validate(candidate); err != nil {
		return nil, err
	}
	created, err := s.repo.Insert(ctx, candidate)
	if err != nil {
		return nil, s.persistence("insert", err)
	}
	log.Debugf("created todo %d for %s", created.ID, owner)
	return created, nil
}

func (s *todoService) Authorize(ctx context.Context, owner string, id int64) (*todo.Todo, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.persistence("find", err)
	}
	if t.Owner != owner {
		log.Infof("user %s denied access to todo %d", owner, id)
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *todoService) Update(ctx context.Context, owner string, id int64, in Input) (*todo.Todo, error) {
	existing, err := s.Authorize(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	candidate := *existing
	candidate.Description = in.Description
	candidate.Done = in.Done
	if target, err := todo.ParseDate(in.TargetDate); err == nil {
		candidate.TargetDate = target
	}
	if err := s.gate.Validate(&candidate); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &candidate); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.persistence("update", err)
	}
	return &candidate, nil
}

func (s *todoService) Delete(ctx context.Context, owner string, id int64) error {
	if _, err := s.Authorize(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return s.persistence("delete", err)
	}
	return nil
}

func (s *todoService) persistence(op string, err error) error {
	log.Errorf("%s failed: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
