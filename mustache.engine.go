package mustache

import (
	"context"

	"github.com/itsatony/go-mustache/internal"
	"go.uber.org/zap"
)

// Engine compiles templates against a shared set of partials.
// It is safe for concurrent use.
type Engine struct {
	compiler *internal.Compiler
	partials *internal.Registry // Raw partial sources; every Parse compiles a copy
	storage  PartialStorage
	config   *engineConfig
	logger   *zap.Logger
}

// New creates a new mustache Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	compiler := internal.NewCompiler(internal.CompilerConfig{
		Delimiters: internal.Delimiters{Open: config.openDelim, Close: config.closeDelim},
		Pragmas:    internal.Pragmas{ImplicitIterator: config.iterator},
		Logger:     logger,
	})

	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldOpen, config.openDelim),
		zap.String(LogFieldClose, config.closeDelim),
		zap.String(LogFieldIterator, config.iterator),
		zap.Int(LogFieldMaxDepth, config.maxDepth),
		zap.Int(LogFieldPartials, len(config.partials)),
	)

	return &Engine{
		compiler: compiler,
		partials: internal.NewRegistry(config.partials, nil, logger),
		storage:  config.storage,
		config:   config,
		logger:   logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Parse compiles a template source string and returns a Template.
// The returned Template can be rendered multiple times with different views.
func (e *Engine) Parse(source string) (*Template, error) {
	return e.ParseContext(context.Background(), source)
}

// ParseContext is Parse with a context used for loading partials from
// storage, including partials first referenced by higher-order sections
// at render time.
func (e *Engine) ParseContext(ctx context.Context, source string) (*Template, error) {
	return e.compile(source, e.partials.Clone(e.loader(ctx)))
}

// ParseWithPartials compiles source with extra partials on top of the ones
// registered with the engine. The map is copied and the engine is not
// modified.
func (e *Engine) ParseWithPartials(source string, partials map[string]string) (*Template, error) {
	registry := e.partials.Clone(e.loader(context.Background()))
	for name, partial := range partials {
		registry.Set(name, partial)
	}
	return e.compile(source, registry)
}

// ParseNamed loads the template called name from the configured storage
// and compiles it.
func (e *Engine) ParseNamed(ctx context.Context, name string) (*Template, error) {
	if e.storage == nil {
		return nil, NewNoStorageError(name)
	}
	stored, err := e.storage.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.ParseContext(ctx, stored.Source)
}

func (e *Engine) compile(source string, registry *internal.Registry) (*Template, error) {
	program, err := e.compiler.Compile(source, registry)
	if err != nil {
		return nil, NewCompileError(err)
	}
	e.logger.Debug(LogMsgTemplateParsed,
		zap.Int(LogFieldBytes, len(source)),
		zap.Int(LogFieldOps, len(program)),
	)
	return newTemplate(source, program, registry, e), nil
}

func (e *Engine) loader(ctx context.Context) internal.PartialLoader {
	if e.storage == nil {
		return nil
	}
	return &storageLoader{ctx: ctx, storage: e.storage, logger: e.logger}
}

// Render is a convenience method that parses and renders in one step.
// For templates that will be rendered multiple times, use Parse() instead.
func (e *Engine) Render(source string, view any) (string, error) {
	tmpl, err := e.Parse(source)
	if err != nil {
		return "", err
	}
	return tmpl.Render(view)
}

// Validate compiles source and reports the first error, if any.
func (e *Engine) Validate(source string) error {
	_, err := e.Parse(source)
	return err
}

// RegisterPartial adds or replaces a named partial. Templates parsed
// earlier keep the version they were compiled with.
func (e *Engine) RegisterPartial(name, source string) error {
	if name == "" {
		return NewEmptyPartialNameError()
	}
	e.partials.Set(name, source)
	e.logger.Debug(LogMsgPartialRegistered, zap.String(LogFieldPartial, name))
	return nil
}

// MustRegisterPartial registers a partial and panics on error.
func (e *Engine) MustRegisterPartial(name, source string) {
	if err := e.RegisterPartial(name, source); err != nil {
		panic(err)
	}
}

// UnregisterPartial removes a registered partial by name.
// Returns true if the partial existed and was removed, false otherwise.
func (e *Engine) UnregisterPartial(name string) bool {
	if !e.partials.Has(name) {
		return false
	}
	e.partials.Delete(name)
	return true
}

// HasPartial checks if a partial is registered with the given name.
// Partials only available from storage are not reported.
func (e *Engine) HasPartial(name string) bool {
	return e.partials.Has(name)
}

// ListPartials returns all registered partial names in sorted order.
func (e *Engine) ListPartials() []string {
	return e.partials.Names()
}

// Storage returns the configured partial storage, or nil.
func (e *Engine) Storage() PartialStorage {
	return e.storage
}

// storageLoader adapts PartialStorage to the compiler's loader interface.
type storageLoader struct {
	ctx     context.Context
	storage PartialStorage
	logger  *zap.Logger
}

func (l *storageLoader) LoadPartial(name string) (string, bool, error) {
	l.logger.Debug(LogMsgStorageLoad, zap.String(LogFieldPartial, name))
	stored, err := l.storage.Get(l.ctx, name)
	if err != nil {
		if IsPartialNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return stored.Source, true, nil
}
