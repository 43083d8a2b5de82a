package mustache

import (
	"context"
	"sync"
	"time"
)

// Cache defaults
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheMaxEntries  = 1000
	DefaultNegativeCacheTTL = 30 * time.Second
)

// CachedStorage wraps any PartialStorage with an in-memory cache of Get
// results. Writes through the wrapper invalidate the affected entry.
type CachedStorage struct {
	storage PartialStorage
	config  CacheConfig

	mu     sync.Mutex
	cache  map[string]*cacheEntry
	closed bool
}

// CacheConfig configures the caching behavior.
type CacheConfig struct {
	// TTL is how long cached partials remain valid.
	// Default: 5 minutes.
	TTL time.Duration

	// MaxEntries is the maximum number of cached partials.
	// When exceeded, the least recently used entry is evicted.
	// Default: 1000.
	MaxEntries int

	// NegativeCacheTTL is how long to cache "not found" results.
	// Set to a negative value to disable negative caching.
	// Default: 30 seconds.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              DefaultCacheTTL,
		MaxEntries:       DefaultCacheMaxEntries,
		NegativeCacheTTL: DefaultNegativeCacheTTL,
	}
}

type cacheEntry struct {
	partial    *StoredPartial
	notFound   bool
	cachedAt   time.Time
	accessedAt time.Time
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

// NewCachedStorage wraps storage with caching. Zero config fields take
// their defaults.
func NewCachedStorage(storage PartialStorage, config CacheConfig) *CachedStorage {
	if config.TTL == 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = DefaultCacheMaxEntries
	}
	if config.NegativeCacheTTL == 0 {
		config.NegativeCacheTTL = DefaultNegativeCacheTTL
	}

	return &CachedStorage{
		storage: storage,
		config:  config,
		cache:   make(map[string]*cacheEntry),
	}
}

// Get returns a cached partial when one is valid and reads through otherwise.
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredPartial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.isValid(entry) {
		entry.accessedAt = time.Now()
		s.mu.Unlock()
		if entry.notFound {
			return nil, NewPartialNotFoundError(name)
		}
		return copyPartial(entry.partial), nil
	}
	s.mu.Unlock()

	p, err := s.storage.Get(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, NewStorageClosedError()
	}

	if err != nil {
		// Only a definite miss is cached; transient failures are retried.
		if IsPartialNotFound(err) && s.config.NegativeCacheTTL > 0 {
			s.addEntry(name, nil, true)
		}
		return nil, err
	}

	s.addEntry(name, p, false)
	return copyPartial(p), nil
}

// Save stores a partial and invalidates its cache entry.
func (s *CachedStorage) Save(ctx context.Context, p *StoredPartial) error {
	if err := s.storage.Save(ctx, p); err != nil {
		return err
	}
	s.Invalidate(p.Name)
	return nil
}

// Delete removes a partial and invalidates its cache entry.
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List bypasses the cache.
func (s *CachedStorage) List(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx)
}

// Exists answers from a valid cache entry when there is one.
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.isValid(entry) {
		s.mu.Unlock()
		return !entry.notFound, nil
	}
	s.mu.Unlock()

	return s.storage.Exists(ctx, name)
}

// Close drops the cache and closes the underlying storage.
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cache = nil
	s.mu.Unlock()

	return s.storage.Close()
}

// Invalidate removes one partial from the cache. It matches the
// FilesystemStorage.Watch callback signature.
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (s *CachedStorage) InvalidateAll() {
	s.mu.Lock()
	if !s.closed {
		s.cache = make(map[string]*cacheEntry)
	}
	s.mu.Unlock()
}

// Stats returns cache statistics.
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{Entries: len(s.cache)}
	for _, entry := range s.cache {
		if !s.isValid(entry) {
			continue
		}
		if entry.notFound {
			stats.NegativeEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

// Unwrap returns the wrapped storage.
func (s *CachedStorage) Unwrap() PartialStorage {
	return s.storage
}

func (s *CachedStorage) isValid(entry *cacheEntry) bool {
	ttl := s.config.TTL
	if entry.notFound {
		ttl = s.config.NegativeCacheTTL
	}
	return time.Since(entry.cachedAt) < ttl
}

// addEntry caches a result, evicting the least recently used entry when full.
// Caller must hold the lock.
func (s *CachedStorage) addEntry(name string, p *StoredPartial, notFound bool) {
	if _, ok := s.cache[name]; !ok && len(s.cache) >= s.config.MaxEntries {
		s.evictOldest()
	}

	now := time.Now()
	s.cache[name] = &cacheEntry{
		partial:    copyPartial(p),
		notFound:   notFound,
		cachedAt:   now,
		accessedAt: now,
	}
}

// Caller must hold the lock.
func (s *CachedStorage) evictOldest() {
	var oldestName string
	var oldest *cacheEntry
	for name, entry := range s.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldestName, oldest = name, entry
		}
	}
	if oldest != nil {
		delete(s.cache, oldestName)
	}
}

func copyPartial(p *StoredPartial) *StoredPartial {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
