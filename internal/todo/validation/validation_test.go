package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/davrot/todolist/internal/todo"
	"github.com/stretchr/testify/require"
)

func TestGateDescriptionThreshold(t *testing.T) {
	g := NewGate(10)
	cases := []struct {
		desc  string
		valid bool
	}{
		{"", false},
		{"short", false},
		{"123456789", false},
		{"1234567890", true},
		{"Buy groceries today", true},
		{"ünïcödé-10", true},
	}
	for _, tc := range cases {
		err := g.Validate(&todo.Todo{Description: tc.desc})
		if tc.valid {
			require.NoError(t, err, "description %q", tc.desc)
			continue
		}
		var verr *Error
		require.True(t, errors.As(err, &verr), "description %q", tc.desc)
		require.Equal(t, FieldDescription, verr.Field)
	}
}

func TestGateMessageMatchesThreshold(t *testing.T) {
	for _, min := range []int{1, 5, 10, 42} {
		g := NewGate(min)
		err := g.Validate(&todo.Todo{Description: strings.Repeat("x", min-1)})
		var verr *Error
		require.True(t, errors.As(err, &verr))
		require.Equal(t, fmt.Sprintf("Enter at least %d characters", min), verr.Message)
		require.NoError(t, g.Validate(&todo.Todo{Description: strings.Repeat("x", min)}))
	}
}

func TestGateRaisesNonPositiveMinimum(t *testing.T) {
	g := NewGate(0)
	require.Equal(t, 1, g.MinDescriptionLength())
	require.Error(t, g.Validate(&todo.Todo{Description: ""}))
	require.NoError(t, g.Validate(&todo.Todo{Description: "x"}))
}
