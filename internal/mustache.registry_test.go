package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type registryTestLoader struct {
	sources map[string]string
	err     error
	calls   int
}

func (l *registryTestLoader) LoadPartial(name string) (string, bool, error) {
	l.calls++
	if l.err != nil {
		return "", false, l.err
	}
	source, ok := l.sources[name]
	return source, ok, nil
}

func literalProgram(source string) (Program, error) {
	return Program{LiteralOp{Text: source}}, nil
}

func requireErrorKind(t *testing.T, err error, kind ErrorKind) *CompileError {
	t.Helper()
	require.Error(t, err)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr), "expected *CompileError, got %T", err)
	assert.Equal(t, kind, compileErr.Kind)
	return compileErr
}

func TestRegistry_Resolve_CompilesOnce(t *testing.T) {
	r := NewRegistry(map[string]string{"p": "body"}, nil, zap.NewNop())

	calls := 0
	compile := func(source string) (Program, error) {
		calls++
		return literalProgram(source)
	}

	require.NoError(t, r.Resolve("p", compile))
	require.NoError(t, r.Resolve("p", compile))
	assert.Equal(t, 1, calls)
	assert.Equal(t, Program{LiteralOp{Text: "body"}}, r.Program("p"))
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := NewRegistry(nil, nil, zap.NewNop())
	err := r.Resolve("missing", literalProgram)
	compileErr := requireErrorKind(t, err, ErrorKindUnknownPartial)
	assert.Equal(t, "missing", compileErr.Name)
}

func TestRegistry_Resolve_EmptySourceIsValid(t *testing.T) {
	r := NewRegistry(map[string]string{"empty": ""}, nil, zap.NewNop())
	require.NoError(t, r.Resolve("empty", literalProgram))
	assert.True(t, r.Has("empty"))
}

func TestRegistry_Resolve_GuardDuringFirstCompile(t *testing.T) {
	r := NewRegistry(map[string]string{"self": "x"}, nil, zap.NewNop())

	err := r.Resolve("self", func(source string) (Program, error) {
		assert.Nil(t, r.Program("self"))
		nested := r.Resolve("self", func(string) (Program, error) {
			t.Fatal("self reference must not recompile")
			return nil, nil
		})
		assert.NoError(t, nested)
		return literalProgram(source)
	})

	require.NoError(t, err)
	assert.Len(t, r.Program("self"), 1)
}

func TestRegistry_Resolve_FailedCompileRestoresSource(t *testing.T) {
	r := NewRegistry(map[string]string{"p": "body"}, nil, zap.NewNop())
	boom := errors.New("boom")

	err := r.Resolve("p", func(string) (Program, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, r.Resolve("p", literalProgram))
	assert.Equal(t, Program{LiteralOp{Text: "body"}}, r.Program("p"))
}

func TestRegistry_Resolve_Loader(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		loader := &registryTestLoader{sources: map[string]string{"p": "loaded"}}
		r := NewRegistry(nil, loader, zap.NewNop())

		require.NoError(t, r.Resolve("p", literalProgram))
		require.NoError(t, r.Resolve("p", literalProgram))
		assert.Equal(t, 1, loader.calls)
		assert.Equal(t, Program{LiteralOp{Text: "loaded"}}, r.Program("p"))
	})

	t.Run("not found", func(t *testing.T) {
		r := NewRegistry(nil, &registryTestLoader{}, zap.NewNop())
		requireErrorKind(t, r.Resolve("p", literalProgram), ErrorKindUnknownPartial)
	})

	t.Run("loader error", func(t *testing.T) {
		boom := errors.New("disk on fire")
		r := NewRegistry(nil, &registryTestLoader{err: boom}, zap.NewNop())

		err := r.Resolve("p", literalProgram)
		requireErrorKind(t, err, ErrorKindPartialLoadFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("registered source wins", func(t *testing.T) {
		loader := &registryTestLoader{sources: map[string]string{"p": "loaded"}}
		r := NewRegistry(map[string]string{"p": "local"}, loader, zap.NewNop())

		require.NoError(t, r.Resolve("p", literalProgram))
		assert.Equal(t, 0, loader.calls)
	})
}

func TestRegistry_SetDeleteNames(t *testing.T) {
	seed := map[string]string{"b": "2"}
	r := NewRegistry(seed, nil, zap.NewNop())
	seed["c"] = "mutated after construction"

	r.Set("a", "1")
	assert.Equal(t, []string{"a", "b"}, r.Names())

	require.NoError(t, r.Resolve("a", literalProgram))
	r.Set("a", "one")
	assert.Nil(t, r.Program("a"), "Set must drop the compiled program")

	r.Delete("b")
	assert.False(t, r.Has("b"))
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestRegistry_Clone(t *testing.T) {
	r := NewRegistry(map[string]string{"p": "body"}, nil, zap.NewNop())
	require.NoError(t, r.Resolve("p", literalProgram))

	loader := &registryTestLoader{sources: map[string]string{"late": "from loader"}}
	clone := r.Clone(loader)
	assert.Nil(t, clone.Program("p"))
	assert.True(t, clone.Has("p"))

	clone.Set("q", "other")
	assert.False(t, r.Has("q"))

	require.NoError(t, clone.Resolve("late", literalProgram))
	requireErrorKind(t, r.Resolve("late", literalProgram), ErrorKindUnknownPartial)
}
