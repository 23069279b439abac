package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/davrot/todolist/internal/todo"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoContract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository { return NewMemoryRepo() })
}

func TestMemoryRepoIDsStartAtDemoSequence(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	first, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "first todo item"})
	require.NoError(t, err)
	second, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "second todo item"})
	require.NoError(t, err)
	require.Equal(t, FirstMemoryID, first.ID)
	require.Equal(t, FirstMemoryID+1, second.ID)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	created, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "original text"})
	require.NoError(t, err)

	created.Description = "mutated outside"
	got, err := r.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "original text", got.Description)

	got.Owner = "Ferfero"
	list, err := r.ListByOwner(ctx, "Jack")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryRepoConcurrentInsertsGetUniqueIDs(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Insert(ctx, &todo.Todo{Owner: "Jack", Description: "concurrent insert"})
			if err == nil {
				ids <- got.ID
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[int64]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}
