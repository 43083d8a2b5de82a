package internal

import (
	"strings"

	"go.uber.org/zap"
)

var htmlEscaper = strings.NewReplacer(
	HTMLAmpersand, HTMLAmpersandEntity,
	HTMLLessThan, HTMLLessThanEntity,
	HTMLGreaterThan, HTMLGreaterEntity,
)

// EscapeHTML replaces &, < and > with their entities
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Sink receives rendered text in order
type Sink func(chunk string)

// RendererConfig configures a single render
type RendererConfig struct {
	MaxDepth int // Partial nesting limit (<= 0 uses DefaultMaxDepth)
	Logger   *zap.Logger
}

// Renderer executes a Program against one context stack. A renderer is
// used for a single render and is not safe for concurrent use.
type Renderer struct {
	stack    *Stack
	sink     Sink
	depth    int
	maxDepth int
	capped   bool
	err      error
	logger   *zap.Logger
}

// NewRenderer creates a renderer writing to sink with view as the root scope
func NewRenderer(view any, sink Sink, config RendererConfig) *Renderer {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	return &Renderer{
		stack:    NewStack(view),
		sink:     sink,
		maxDepth: config.MaxDepth,
		logger:   config.Logger,
	}
}

// Stack returns the renderer's context stack
func (r *Renderer) Stack() *Stack {
	return r.stack
}

// Run executes prog. The only failure is a higher-order section fragment
// that does not compile.
func (r *Renderer) Run(prog Program) error {
	r.logger.Debug(LogMsgRenderStart, zap.Int(LogFieldOps, len(prog)))
	r.exec(prog)
	r.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldFrameSize, r.stack.Len()))
	return r.err
}

func (r *Renderer) exec(prog Program) {
	for _, op := range prog {
		if r.err != nil {
			return
		}
		switch o := op.(type) {
		case LiteralOp:
			r.sink(o.Text)
		case VariableOp:
			r.variable(o)
		case PartialOp:
			r.partial(o)
		case *SectionOp:
			if o.Inverted {
				r.invertedSection(o)
			} else {
				r.section(o)
			}
		}
	}
}

func (r *Renderer) variable(o VariableOp) {
	value, ok := r.stack.Lookup(o.Name)
	if !ok {
		return
	}
	text := Stringify(value)
	if o.Escape {
		text = EscapeHTML(text)
	}
	r.sink(text)
}

// partial renders a registered partial. When the partial's own name
// resolves to a truthy value it is pushed as an extra scope.
func (r *Renderer) partial(o PartialOp) {
	if r.depth >= r.maxDepth {
		if !r.capped {
			r.capped = true
			r.logger.Warn(LogMsgPartialDepthCapped,
				zap.String(LogFieldPartial, o.Name),
				zap.Int(LogFieldMaxDepth, r.maxDepth),
			)
		}
		return
	}

	prog := o.Registry.Program(o.Name)
	if len(prog) == 0 {
		return
	}

	r.depth++
	defer func() { r.depth-- }()

	value, ok := r.stack.Lookup(o.Name)
	if ok && !IsFalsy(value) {
		r.stack.With(value, func() { r.exec(prog) })
		return
	}
	r.exec(prog)
}

func (r *Renderer) section(o *SectionOp) {
	value, ok := r.stack.Lookup(o.Name)
	if !ok {
		return
	}

	switch KindOf(value) {
	case ValueKindSequence:
		iterator := o.Pragmas.Iterator()
		for _, item := range SequenceItems(value) {
			if r.err != nil {
				return
			}
			scope := item
			if KindOf(item) != ValueKindStructured {
				scope = map[string]any{iterator: item}
			}
			r.stack.With(scope, func() { r.exec(o.Body) })
		}

	case ValueKindStructured:
		r.stack.With(value, func() { r.exec(o.Body) })

	case ValueKindCallable:
		lambda, _ := AsLambda(value)
		r.sink(lambda(o.Source, r.fragmentRenderer(o)))

	default:
		if !IsFalsy(value) {
			r.exec(o.Body)
		}
	}
}

func (r *Renderer) invertedSection(o *SectionOp) {
	value, _ := r.stack.Lookup(o.Name)
	if IsFalsy(value) || IsEmptySequence(value) {
		r.exec(o.Body)
	}
}

// fragmentRenderer returns the callback handed to a higher-order section.
// Each call compiles the fragment and renders it on the current stack.
func (r *Renderer) fragmentRenderer(o *SectionOp) RenderFunc {
	return func(fragment string) string {
		prog, err := o.Compiler.CompileFragment(fragment, o.Delims, o.Pragmas, o.Registry)
		if err != nil {
			r.logger.Debug(LogMsgFragmentFailed,
				zap.String(LogFieldSection, o.Name),
				zap.Error(err),
			)
			if r.err == nil {
				r.err = err
			}
			return StringValueEmpty
		}

		var sb strings.Builder
		outer := r.sink
		r.sink = func(chunk string) { sb.WriteString(chunk) }
		defer func() { r.sink = outer }()

		r.exec(prog)
		return sb.String()
	}
}
