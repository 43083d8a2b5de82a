package internal

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// PartialLoader supplies partial source the registry does not hold yet.
// found is false when the name is unknown to the loader.
type PartialLoader interface {
	LoadPartial(name string) (source string, found bool, err error)
}

// partialEntry is either raw source or a compiled program. While a partial
// is being compiled for the first time, compiled is true and program is
// nil, so a self-reference resolves to a no-op.
type partialEntry struct {
	source   string
	compiled bool
	program  Program
}

// Registry maps partial names to their source or compiled program.
// It is shared by every parse descending from one top-level compile.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*partialEntry
	loader  PartialLoader
	logger  *zap.Logger
}

// NewRegistry creates a registry seeded with a copy of partials
func NewRegistry(partials map[string]string, loader PartialLoader, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make(map[string]*partialEntry, len(partials))
	for name, source := range partials {
		entries[name] = &partialEntry{source: source}
	}
	logger.Debug(LogMsgRegistryCreated, zap.Int(LogFieldPartials, len(entries)))
	return &Registry{
		entries: entries,
		loader:  loader,
		logger:  logger,
	}
}

// Set stores raw partial source, replacing any compiled program
func (r *Registry) Set(name, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &partialEntry{source: source}
}

// Delete removes a partial
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Has reports whether name is present, compiled or not
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered partial names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent registry holding the raw source of every
// entry, so compiled state is not shared with the copy. The copy falls
// back to loader for names it does not hold.
func (r *Registry) Clone(loader PartialLoader) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make(map[string]*partialEntry, len(r.entries))
	for name, e := range r.entries {
		entries[name] = &partialEntry{source: e.source}
	}
	return &Registry{
		entries: entries,
		loader:  loader,
		logger:  r.logger,
	}
}

// Resolve makes sure name is compiled, compiling raw source with compile
// on first use. The lock is not held while compile runs, so a partial that
// includes itself sees the guard entry instead of deadlocking.
func (r *Registry) Resolve(name string, compile func(source string) (Program, error)) error {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if ok && entry.compiled {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if !ok {
		source, err := r.load(name)
		if err != nil {
			return err
		}
		r.mu.Lock()
		// Another compile may have installed it meanwhile.
		if entry, ok = r.entries[name]; !ok {
			entry = &partialEntry{source: source}
			r.entries[name] = entry
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	if entry.compiled {
		r.mu.Unlock()
		return nil
	}
	source := entry.source
	entry.compiled = true
	entry.program = nil
	r.mu.Unlock()

	r.logger.Debug(LogMsgPartialCompiling, zap.String(LogFieldPartial, name))
	program, err := compile(source)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		entry.compiled = false
		return err
	}
	entry.program = program
	r.logger.Debug(LogMsgPartialCompiled,
		zap.String(LogFieldPartial, name),
		zap.Int(LogFieldOps, len(program)),
	)
	return nil
}

func (r *Registry) load(name string) (string, error) {
	if r.loader == nil {
		return StringValueEmpty, newUnknownPartialError(name)
	}
	source, found, err := r.loader.LoadPartial(name)
	if err != nil {
		return StringValueEmpty, newPartialLoadError(name, err)
	}
	if !found {
		return StringValueEmpty, newUnknownPartialError(name)
	}
	r.logger.Debug(LogMsgPartialLoaded, zap.String(LogFieldPartial, name))
	return source, nil
}

// Program returns the compiled program for name. A partial still under
// its first compilation, or one never resolved, yields an empty program.
func (r *Registry) Program(name string) Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[name]; ok {
		return entry.program
	}
	return nil
}
