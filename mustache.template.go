package mustache

import (
	"io"
	"strings"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-mustache/internal"
	"go.uber.org/zap"
)

// Template is a compiled template. Rendering never modifies it, so a
// Template may be rendered concurrently; each render gets its own
// context stack.
type Template struct {
	source   string
	program  internal.Program
	registry *internal.Registry
	engine   *Engine
}

func newTemplate(source string, program internal.Program, registry *internal.Registry, engine *Engine) *Template {
	return &Template{
		source:   source,
		program:  program,
		registry: registry,
		engine:   engine,
	}
}

// Source returns the template text the Template was compiled from.
func (t *Template) Source() string {
	return t.source
}

// Partials returns the names of the partials available to this template,
// sorted. Partials loaded from storage appear once they were referenced.
func (t *Template) Partials() []string {
	return t.registry.Names()
}

// Render renders the template against view and returns the output.
// A nil view renders against an empty scope.
func (t *Template) Render(view any) (string, error) {
	var sb strings.Builder
	if err := t.RenderFunc(view, func(chunk string) { sb.WriteString(chunk) }); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderFunc renders the template, handing each chunk of output to sink
// in order.
func (t *Template) RenderFunc(view any, sink func(chunk string)) error {
	if sink == nil {
		return cuserr.NewValidationError(ErrCodeRender, ErrMsgNilSink)
	}

	renderer := internal.NewRenderer(view, sink, internal.RendererConfig{
		MaxDepth: t.engine.config.maxDepth,
		Logger:   t.engine.logger,
	})
	if err := renderer.Run(t.program); err != nil {
		return NewRenderError(err)
	}

	t.engine.logger.Debug(LogMsgTemplateRendered, zap.Int(LogFieldOps, len(t.program)))
	return nil
}

// Execute renders the template into w. Output already written when w
// fails is not rolled back.
func (t *Template) Execute(w io.Writer, view any) error {
	var writeErr error
	err := t.RenderFunc(view, func(chunk string) {
		if writeErr != nil {
			return
		}
		if _, writeErr = io.WriteString(w, chunk); writeErr != nil {
			t.engine.logger.Debug(LogMsgRenderWriteFailure, zap.Error(writeErr))
		}
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return NewWriteError(writeErr)
	}
	return nil
}
