package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davrot/todolist/internal/todo"
	"github.com/davrot/todolist/internal/todo/repository"
	"github.com/davrot/todolist/internal/todo/validation"
	"github.com/stretchr/testify/require"
)

// countingRepo records how many mutations reached the store.
type countingRepo struct {
	*repository.MemoryRepo
	inserts, updates, deletes int
}

func (c *countingRepo) Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	c.inserts++
	return c.MemoryRepo.Insert(ctx, t)
}

func (c *countingRepo) Update(ctx context.Context, t *todo.Todo) error {
	c.updates++
	return c.MemoryRepo.Update(ctx, t)
}

func (c *countingRepo) DeleteByID(ctx context.Context, id int64) error {
	c.deletes++
	return c.MemoryRepo.DeleteByID(ctx, id)
}

// failingRepo fails every call with a storage error.
type failingRepo struct{}

var errDown = errors.New("connection refused")

func (failingRepo) ListByOwner(context.Context, string) ([]*todo.Todo, error) { return nil, errDown }
func (failingRepo) FindByID(context.Context, int64) (*todo.Todo, error)       { return nil, errDown }
func (failingRepo) Insert(context.Context, *todo.Todo) (*todo.Todo, error)    { return nil, errDown }
func (failingRepo) Update(context.Context, *todo.Todo) error                  { return errDown }
func (failingRepo) DeleteByID(context.Context, int64) error                   { return errDown }
func (failingRepo) Ping(context.Context) error                                { return errDown }

var fixedNow = time.Date(2024, time.June, 1, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{MemoryRepo: repository.NewMemoryRepo()}
	svc := New(repo, validation.NewGate(10), WithClock(func() time.Time { return fixedNow }))
	return svc, repo
}

func TestCreateAndListRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Jack", Input{Description: "Buy groceries today", TargetDate: "2024-06-01"})
	require.NoError(t, err)
	require.Equal(t, "Jack", created.Owner)
	require.False(t, created.Done)

	list, err := svc.List(ctx, "Jack")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)
	require.Equal(t, "Buy groceries today", list[0].Description)
	require.Equal(t, "2024-06-01", todo.FormatDate(list[0].TargetDate))
	require.False(t, list[0].Done)
	require.Equal(t, "Jack", list[0].Owner)
}

func TestCreateIgnoresSubmittedDoneAndDefaultsDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, raw := range []string{"", "not-a-date", "2024-13-45"} {
		created, err := svc.Create(ctx, "Jack", Input{Description: "date defaults to today", TargetDate: raw, Done: true})
		require.NoError(t, err)
		require.Equal(t, "2024-06-01", todo.FormatDate(created.TargetDate), "raw date %q", raw)
		require.False(t, created.Done)
	}

	created, err := svc.Create(ctx, "Jack", Input{Description: "valid dates are honoured", TargetDate: "2030-01-31"})
	require.NoError(t, err)
	require.Equal(t, "2030-01-31", todo.FormatDate(created.TargetDate))
}

func TestShortDescriptionNeverReachesStore(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	existing, err := svc.Create(ctx, "Jack", Input{Description: "a valid description", TargetDate: "2024-01-01"})
	require.NoError(t, err)
	before, err := repo.ListByOwner(ctx, "Jack")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Jack", Input{Description: "short"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "description", verr.Field)
	require.Equal(t, "Enter at least 10 characters", verr.Message)

	_, err = svc.Update(ctx, "Jack", existing.ID, Input{Description: "tiny", TargetDate: "2025-01-01", Done: true})
	require.ErrorAs(t, err, &verr)

	require.Equal(t, 1, repo.inserts)
	require.Zero(t, repo.updates)
	after, err := repo.ListByOwner(ctx, "Jack")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestOtherUsersRecordsAreNotFound(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	theirs, err := svc.Create(ctx, "Ferfero", Input{Description: "ferfero's private todo"})
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "Jack", theirs.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, "Jack", theirs.ID, Input{Description: "hijacked description"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "Jack", theirs.ID), ErrNotFound)

	_, missingErr := svc.Authorize(ctx, "Jack", 999999)
	require.ErrorIs(t, missingErr, ErrNotFound)
	require.Equal(t, missingErr, err, "ownership mismatch must look like a missing record")

	require.Zero(t, repo.updates)
	require.Zero(t, repo.deletes)
	still, err := repo.FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	require.Equal(t, "ferfero's private todo", still.Description)
}

func TestUsernameComparisonIsByValue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := string([]byte("Jack"))
	created, err := svc.Create(ctx, owner, Input{Description: "compare by value"})
	require.NoError(t, err)

	got, err := svc.Authorize(ctx, "Ja"+"ck", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestUpdatePreservesOwner(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "Jack", Input{Description: "learn the basics", TargetDate: "2024-01-01"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "Jack", created.ID, Input{Description: "learn the advanced bits", TargetDate: "2024-02-01", Done: true})
	require.NoError(t, err)
	require.Equal(t, "Jack", updated.Owner)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Jack", stored.Owner)
	require.Equal(t, "learn the advanced bits", stored.Description)
	require.Equal(t, "2024-02-01", todo.FormatDate(stored.TargetDate))
	require.True(t, stored.Done)
}

func TestUpdateKeepsDateWhenSubmittedDateInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "Jack", Input{Description: "keep my date please", TargetDate: "2024-03-03"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "Jack", created.ID, Input{Description: "keep my date please", TargetDate: "garbage"})
	require.NoError(t, err)
	require.Equal(t, "2024-03-03", todo.FormatDate(updated.TargetDate))
}

func TestDeleteTwiceReportsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.ErrorIs(t, svc.Delete(ctx, "Jack", 123456), ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "Jack", 123456), ErrNotFound)

	created, err := svc.Create(ctx, "Jack", Input{Description: "delete me exactly once"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "Jack", created.ID))
	require.ErrorIs(t, svc.Delete(ctx, "Jack", created.ID), ErrNotFound)
}

func TestListScopedToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, "Jack", Input{Description: "jack's first todo"})
	b, _ := svc.Create(ctx, "Jack", Input{Description: "jack's second todo"})
	_, _ = svc.Create(ctx, "Ferfero", Input{Description: "ferfero's only todo"})

	list, err := svc.List(ctx, "Jack")
	require.NoError(t, err)
	ids := []int64{}
	for _, it := range list {
		ids = append(ids, it.ID)
	}
	require.Equal(t, []int64{a.ID, b.ID}, ids)
}

func TestStoreFailuresAreWrappedAsPersistenceErrors(t *testing.T) {
	svc := New(failingRepo{}, validation.NewGate(10))
	ctx := context.Background()

	_, err := svc.List(ctx, "Jack")
	require.ErrorIs(t, err, ErrPersistence)
	_, err = svc.Create(ctx, "Jack", Input{Description: "a valid description"})
	require.ErrorIs(t, err, ErrPersistence)
	_, err = svc.Authorize(ctx, "Jack", 1)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, svc.Delete(ctx, "Jack", 1), ErrPersistence)
	require.NotErrorIs(t, svc.Delete(ctx, "Jack", 1), ErrNotFound)
}

func TestNewMemoryService(t *testing.T) {
	svc := NewMemoryService(5)
	require.Equal(t, 5, svc.MinDescriptionLength())
	_, err := svc.Create(context.Background(), "Jack", Input{Description: "five!"})
	require.NoError(t, err)
}
