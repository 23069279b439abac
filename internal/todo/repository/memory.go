package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/davrot/todolist/internal/todo"
)

// FirstMemoryID is the first id handed out by a fresh MemoryRepo.
const FirstMemoryID int64 = 10001

// MemoryRepo is an in-memory repository used for development and tests.
// Stored records are copies, so callers cannot change stored state by
// mutating a value they passed in or got back.
type MemoryRepo struct {
	mu     sync.RWMutex
	store  map[int64]todo.Todo
	nextID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[int64]todo.Todo), nextID: FirstMemoryID}
}

func (m *MemoryRepo) ListByOwner(_ context.Context, owner string) ([]*todo.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*todo.Todo, 0)
	for _, t := range m.store {
		if t.Owner == owner {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepo) FindByID(_ context.Context, id int64) (*todo.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryRepo) Insert(_ context.Context, t *todo.Todo) (*todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	c.ID = m.nextID
	m.nextID++
	m.store[c.ID] = c
	return &c, nil
}

func (m *MemoryRepo) Update(_ context.Context, t *todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[t.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Description = t.Description
	cur.TargetDate = t.TargetDate
	cur.Done = t.Done
	m.store[t.ID] = cur
	return nil
}

func (m *MemoryRepo) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) Ping(context.Context) error { return nil }
