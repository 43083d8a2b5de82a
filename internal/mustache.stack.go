package internal

import (
	"github.com/edwingeng/deque"
)

// Stack is the chain of view scopes consulted during a render. The front
// of the deque is the root view and the back is the innermost scope. It is
// never empty and must not be shared between concurrent renders.
type Stack struct {
	frames deque.Deque
}

// NewStack creates a stack holding root as its only frame.
// A nil root is replaced with an empty scope.
func NewStack(root any) *Stack {
	if root == nil {
		root = map[string]any{}
	}
	frames := deque.NewDeque()
	frames.PushBack(root)
	return &Stack{frames: frames}
}

// Push adds a new innermost scope
func (s *Stack) Push(v any) {
	s.frames.PushBack(v)
}

// Pop removes the innermost scope. The root frame is never removed.
func (s *Stack) Pop() {
	if s.frames.Len() > 1 {
		s.frames.PopBack()
	}
}

// Top returns the innermost scope
func (s *Stack) Top() any {
	return s.frames.Back()
}

// Root returns the view the render started with
func (s *Stack) Root() any {
	return s.frames.Front()
}

// Len returns the number of frames
func (s *Stack) Len() int {
	return s.frames.Len()
}

// With pushes v for the duration of fn. The pop happens on every exit
// path, including a panic raised by a view lambda.
func (s *Stack) With(v any, fn func()) {
	s.Push(v)
	defer s.Pop()
	fn()
}

// Lookup resolves name against the innermost scope and then the root.
// Intermediate scopes are not consulted.
func (s *Stack) Lookup(name string) (any, bool) {
	if v, ok := Field(s.Top(), name); ok {
		return v, true
	}
	if s.Len() > 1 {
		return Field(s.Root(), name)
	}
	return nil, false
}
