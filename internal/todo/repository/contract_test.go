package repository

import (
	"context"
	"testing"
	"time"

	"github.com/davrot/todolist/internal/todo"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := todo.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// runRepositoryContract exercises the behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("insert then list by owner", func(t *testing.T) {
		r := newRepo(t)
		in := &todo.Todo{Owner: "Jack", Description: "Buy groceries today", TargetDate: date("2024-06-01")}
		got, err := r.Insert(ctx, in)
		require.NoError(t, err)
		require.NotZero(t, got.ID)
		require.Zero(t, in.ID, "caller's value must not be modified")

		list, err := r.ListByOwner(ctx, "Jack")
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, *got, *list[0])
		require.Equal(t, "2024-06-01", todo.FormatDate(list[0].TargetDate))
	})

	t.Run("list is scoped to owner and ordered", func(t *testing.T) {
		r := newRepo(t)
		a, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "first of jack", TargetDate: date("2024-01-01")})
		require.NoError(t, err)
		b, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "second of jack", TargetDate: date("2024-01-02")})
		require.NoError(t, err)
		_, err = r.Insert(ctx, &todo.Todo{Owner: "Ferfero", Description: "ferfero's todo", TargetDate: date("2024-01-03")})
		require.NoError(t, err)

		list, err := r.ListByOwner(ctx, "Jack")
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, a.ID, list[0].ID)
		require.Equal(t, b.ID, list[1].ID)

		none, err := r.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("update overwrites mutable fields but not owner", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "learn go modules", TargetDate: date("2024-01-01")})
		require.NoError(t, err)

		err = r.Update(ctx, &todo.Todo{ID: created.ID, Owner: "Ferfero", Description: "learn go generics", TargetDate: date("2024-02-02"), Done: true})
		require.NoError(t, err)

		got, err := r.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "Jack", got.Owner)
		require.Equal(t, "learn go generics", got.Description)
		require.Equal(t, "2024-02-02", todo.FormatDate(got.TargetDate))
		require.True(t, got.Done)
	})

	t.Run("missing ids report not found", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.FindByID(ctx, 424242)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, r.Update(ctx, &todo.Todo{ID: 424242, Description: "does not exist"}), ErrNotFound)
		require.ErrorIs(t, r.DeleteByID(ctx, 424242), ErrNotFound)
		require.ErrorIs(t, r.DeleteByID(ctx, 424242), ErrNotFound)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "delete me twice", TargetDate: date("2024-01-01")})
		require.NoError(t, err)
		require.NoError(t, r.DeleteByID(ctx, created.ID))
		require.ErrorIs(t, r.DeleteByID(ctx, created.ID), ErrNotFound)
		_, err = r.FindByID(ctx, created.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newRepo(t).Ping(ctx))
	})
}
