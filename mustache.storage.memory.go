package mustache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of PartialStorage.
// It is primarily intended for testing and development.
// All data is lost when the process terminates.
type MemoryStorage struct {
	mu       sync.RWMutex
	partials map[string]*StoredPartial
	closed   bool
}

// MemoryStorageDriver is the driver for creating MemoryStorage instances.
type MemoryStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
}

// Open creates a new MemoryStorage instance.
// The connection string is ignored for memory storage.
func (d *MemoryStorageDriver) Open(connectionString string) (PartialStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage creates a new in-memory partial storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		partials: make(map[string]*StoredPartial),
	}
}

// Get retrieves a partial by name.
func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredPartial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	p, ok := s.partials[name]
	if !ok {
		return nil, NewPartialNotFoundError(name)
	}

	copied := *p
	return &copied, nil
}

// Save creates or replaces a partial.
func (s *MemoryStorage) Save(ctx context.Context, p *StoredPartial) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePartial(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	p.Digest = PartialDigest(p.Source)
	p.UpdatedAt = time.Now()

	copied := *p
	s.partials[p.Name] = &copied
	return nil
}

// Delete removes a partial by name.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	if _, ok := s.partials[name]; !ok {
		return NewPartialNotFoundError(name)
	}
	delete(s.partials, name)
	return nil
}

// List returns the names of all stored partials, sorted.
func (s *MemoryStorage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	names := make([]string, 0, len(s.partials))
	for name := range s.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists checks if a partial with the given name exists.
func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	_, ok := s.partials[name]
	return ok, nil
}

// Close marks the storage as closed and drops all partials.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.partials = nil
	return nil
}
