package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_NilRoot(t *testing.T) {
	s := NewStack(nil)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, map[string]any{}, s.Root())
	assert.Equal(t, s.Root(), s.Top())
}

func TestStack_PushPop(t *testing.T) {
	root := map[string]any{"a": 1}
	s := NewStack(root)

	s.Push("x")
	s.Push("y")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "y", s.Top())
	assert.Equal(t, root, s.Root())

	s.Pop()
	assert.Equal(t, "x", s.Top())
	s.Pop()
	s.Pop()
	assert.Equal(t, 1, s.Len(), "root frame must survive extra pops")
}

func TestStack_With_PopsOnPanic(t *testing.T) {
	s := NewStack(nil)

	assert.Panics(t, func() {
		s.With("scope", func() {
			assert.Equal(t, 2, s.Len())
			panic("lambda failed")
		})
	})
	assert.Equal(t, 1, s.Len())
}

func TestStack_Lookup(t *testing.T) {
	root := map[string]any{"r": "root", "shared": "from root"}
	middle := map[string]any{"m": "middle", "shared": "from middle"}
	top := map[string]any{"t": "top"}

	s := NewStack(root)
	s.Push(middle)
	s.Push(top)

	tests := []struct {
		name     string
		key      string
		expected any
		found    bool
	}{
		{name: "top frame", key: "t", expected: "top", found: true},
		{name: "root frame", key: "r", expected: "root", found: true},
		{name: "middle frame is skipped", key: "m", found: false},
		{name: "root wins over middle", key: "shared", expected: "from root", found: true},
		{name: "missing", key: "nope", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Lookup(tt.key)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}
