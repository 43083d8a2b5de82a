package mustache

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	openDelim  string
	closeDelim string
	iterator   string
	maxDepth   int
	partials   map[string]string
	storage    PartialStorage
	logger     *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		openDelim:  DefaultOpenDelim,
		closeDelim: DefaultCloseDelim,
		iterator:   DefaultIteratorKey,
		maxDepth:   DefaultMaxDepth,
		partials:   make(map[string]string),
		logger:     nil,
	}
}

// WithDelimiters sets the delimiters templates start out with.
// A template can still switch them with a {{=open close=}} tag.
// Default: "{{" and "}}"
func WithDelimiters(open, close string) Option {
	return func(c *engineConfig) {
		if open != "" {
			c.openDelim = open
		}
		if close != "" {
			c.closeDelim = close
		}
	}
}

// WithIterator sets the key bare sequence elements are exposed under inside
// a section. The IMPLICIT-ITERATOR pragma overrides it per template.
// Default: "."
func WithIterator(key string) Option {
	return func(c *engineConfig) {
		if key != "" {
			c.iterator = key
		}
	}
}

// WithMaxDepth sets the maximum partial nesting depth during a render.
// Partials nested deeper render nothing. Values below 1 keep the default.
// Default: 100
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithPartials registers partial sources with the engine.
// The map is copied.
func WithPartials(partials map[string]string) Option {
	return func(c *engineConfig) {
		for name, source := range partials {
			c.partials[name] = source
		}
	}
}

// WithPartialStorage sets the storage partials are loaded from when they
// are not registered with the engine.
// Default: nil (no storage)
func WithPartialStorage(storage PartialStorage) Option {
	return func(c *engineConfig) {
		c.storage = storage
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
