package internal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func compileString(t *testing.T, source string, partials map[string]string) (Program, error) {
	t.Helper()
	compiler := NewCompiler(CompilerConfig{Logger: zap.NewNop()})
	return compiler.Compile(source, NewRegistry(partials, nil, zap.NewNop()))
}

func TestCompiler_Compile_Ops(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []OpKind
	}{
		{name: "empty", source: "", expected: []OpKind{}},
		{name: "literal with newlines merges", source: "a\nb\r\nc", expected: []OpKind{OpKindLiteral}},
		{name: "comment is dropped", source: "{{! hi !}}", expected: []OpKind{}},
		{name: "variables", source: "{{a}} {{{b}}}", expected: []OpKind{OpKindVariable, OpKindLiteral, OpKindVariable}},
		{name: "section is one op", source: "x{{#s}}{{a}}{{b}}{{/s}}y", expected: []OpKind{OpKindLiteral, OpKindSection, OpKindLiteral}},
		{name: "delimiter change appends to the same program", source: "a{{=<% %>=}}<%b%>", expected: []OpKind{OpKindLiteral, OpKindVariable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := compileString(t, tt.source, nil)
			require.NoError(t, err)

			kinds := make([]OpKind, 0, len(prog))
			for _, op := range prog {
				kinds = append(kinds, op.Kind())
			}
			assert.Equal(t, tt.expected, kinds)
		})
	}
}

func TestCompiler_Compile_SectionOp(t *testing.T) {
	prog, err := compileString(t, "{{^ items }}none {{name}}{{/ items }}", nil)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	section, ok := prog[0].(*SectionOp)
	require.True(t, ok)
	assert.Equal(t, "items", section.Name)
	assert.True(t, section.Inverted)
	assert.Equal(t, "none {{name}}", section.Source)
	assert.Equal(t, DefaultDelimiters(), section.Delims)
	assert.Len(t, section.Body, 2)
}

func TestCompiler_Compile_VariableOps(t *testing.T) {
	prog, err := compileString(t, "{{ a }}{{& b }}{{{ c }}}", nil)
	require.NoError(t, err)

	assert.Equal(t, Program{
		VariableOp{Name: "a", Escape: true},
		VariableOp{Name: "b", Escape: false},
		VariableOp{Name: "c", Escape: false},
	}, prog)
}

func TestCompiler_Compile_NestedSameNamedSections(t *testing.T) {
	prog, err := compileString(t, "{{#a}}{{#a}}X{{/a}}{{/a}}", nil)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	outer := prog[0].(*SectionOp)
	assert.Equal(t, "{{#a}}X{{/a}}", outer.Source)
	require.Len(t, outer.Body, 1)
	inner := outer.Body[0].(*SectionOp)
	assert.Equal(t, "X", inner.Source)
}

func TestCompiler_Compile_DelimiterChangeInsideSection(t *testing.T) {
	prog, err := compileString(t, "{{#s}}{{=<% %>=}}<%x%>{{/s}}", nil)
	require.NoError(t, err)
	require.Len(t, prog, 1)

	section := prog[0].(*SectionOp)
	assert.Equal(t, Program{VariableOp{Name: "x", Escape: true}}, section.Body)
}

func TestCompiler_Compile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		partials map[string]string
		kind     ErrorKind
		subject  string
		expected string
	}{
		{name: "close without open", source: "{{/x}}", kind: ErrorKindUnbalancedSectionClose},
		{name: "close after section ended", source: "{{#a}}{{/a}}{{/a}}", kind: ErrorKindUnbalancedSectionClose},
		{name: "wrong close", source: "{{#a}}{{/b}}", kind: ErrorKindUnexpectedSectionEnd, subject: "b", expected: "a"},
		{name: "interleaved close", source: "{{#a}}{{#b}}{{/a}}{{/b}}", kind: ErrorKindUnclosedSection, subject: "b"},
		{name: "never closed", source: "{{#a}}x", kind: ErrorKindUnclosedSection, subject: "a"},
		{name: "unknown partial", source: "{{>nope}}", kind: ErrorKindUnknownPartial, subject: "nope"},
		{name: "unknown partial inside section", source: "{{#s}}{{>nope}}{{/s}}", kind: ErrorKindUnknownPartial, subject: "nope"},
		{name: "broken partial", source: "{{>p}}", partials: map[string]string{"p": "{{/q}}"}, kind: ErrorKindUnbalancedSectionClose},
		{name: "single delimiter", source: "{{=<%=}}", kind: ErrorKindMalformedDelimiterTag},
		{name: "blank delimiters", source: "{{= =}}", kind: ErrorKindMalformedDelimiterTag},
		{name: "unsupported pragma", source: "{{%NOPE}}", kind: ErrorKindUnsupportedPragma, subject: "NOPE"},
		{name: "malformed pragma options", source: "{{%IMPLICIT-ITERATOR x}}", kind: ErrorKindMalformedPragmaOptions, subject: PragmaImplicitIterator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := compileString(t, tt.source, tt.partials)
			assert.Nil(t, prog)
			compileErr := requireErrorKind(t, err, tt.kind)
			if tt.subject != "" {
				assert.Equal(t, tt.subject, compileErr.Name)
			}
			assert.Equal(t, tt.expected, compileErr.Expected)
		})
	}
}

func TestCompiler_Compile_PartialIsCompiledOnce(t *testing.T) {
	compiler := NewCompiler(CompilerConfig{})
	registry := NewRegistry(map[string]string{"p": "{{x}}"}, nil, zap.NewNop())

	_, err := compiler.Compile("{{>p}}{{#s}}{{>p}}{{/s}}", registry)
	require.NoError(t, err)

	prog := registry.Program("p")
	require.Len(t, prog, 1)

	_, err = compiler.Compile("{{>p}}", registry)
	require.NoError(t, err)
	assert.Equal(t, prog, registry.Program("p"))
}

func TestCompiler_Compile_PartialIgnoresCallerDelimiters(t *testing.T) {
	compiler := NewCompiler(CompilerConfig{})
	registry := NewRegistry(map[string]string{"p": "{{x}}"}, nil, zap.NewNop())

	_, err := compiler.Compile("{{=<% %>=}}<%>p%>", registry)
	require.NoError(t, err)
	assert.Equal(t, Program{VariableOp{Name: "x", Escape: true}}, registry.Program("p"))
}

func TestCompiler_TokenizerCacheIsBounded(t *testing.T) {
	compiler := NewCompiler(CompilerConfig{})
	registry := NewRegistry(nil, nil, zap.NewNop())

	for i := 0; i < MaxCachedTokenizers*4; i++ {
		prog, err := compiler.Compile(fmt.Sprintf("{{=<%d %d>=}}<%d x %d>", i, i, i, i), registry)
		require.NoError(t, err)
		require.Equal(t, Program{VariableOp{Name: "x", Escape: true}}, prog)
	}
	assert.Equal(t, MaxCachedTokenizers, compiler.cachedTokenizers())

	prog, err := compiler.Compile("{{x}}", registry)
	require.NoError(t, err)
	assert.Equal(t, Program{VariableOp{Name: "x", Escape: true}}, prog)
	assert.Equal(t, MaxCachedTokenizers, compiler.cachedTokenizers())
}

func TestNewCompiler_Defaults(t *testing.T) {
	compiler := NewCompiler(CompilerConfig{})
	assert.Equal(t, DefaultDelimiters(), compiler.Config().Delimiters)
	assert.Equal(t, DefaultIteratorKey, compiler.Config().Pragmas.ImplicitIterator)
}

func TestProgram_String(t *testing.T) {
	prog, err := compileString(t, "a{{b}}{{#c}}{{/c}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "LITERAL \"a\"\nVARIABLE b escape=true\nSECTION c inverted=false ops=0", prog.String())
}
