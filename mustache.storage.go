package mustache

import (
	"context"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// StoredPartial is a named template source held by a storage backend.
// Stored sources can be used both as partials and as top-level templates
// (see Engine.ParseNamed).
type StoredPartial struct {
	// Name is the partial name used in {{>name}} tags.
	Name string `json:"name"`

	// Source is the raw template source.
	Source string `json:"source"`

	// Digest is the hex blake3 digest of Source, set by the storage on Save.
	Digest string `json:"digest"`

	// UpdatedAt is when the partial was last saved.
	UpdatedAt time.Time `json:"updated_at"`
}

// PartialStorage is the interface for pluggable partial storage backends.
// Implementations must be safe for concurrent use.
type PartialStorage interface {
	// Get retrieves a partial by name.
	// Returns an error matched by IsPartialNotFound if it doesn't exist.
	Get(ctx context.Context, name string) (*StoredPartial, error)

	// Save creates or replaces a partial. Digest and UpdatedAt are set by
	// the storage and written back to p.
	Save(ctx context.Context, p *StoredPartial) error

	// Delete removes a partial by name.
	// Returns an error matched by IsPartialNotFound if it doesn't exist.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored partials, sorted.
	List(ctx context.Context) ([]string, error)

	// Exists checks if a partial with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Close releases any resources held by the storage.
	Close() error
}

// StorageDriver is a factory for creating storage instances.
// Drivers register themselves during init().
type StorageDriver interface {
	// Open creates a new storage instance with the given connection string.
	// The format of the connection string is driver-specific.
	Open(connectionString string) (PartialStorage, error)
}

// PartialDigest returns the hex encoded blake3 digest of source.
func PartialDigest(source string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Storage driver registry
var (
	storageDriversMu sync.RWMutex
	storageDrivers   = make(map[string]StorageDriver)
)

// RegisterStorageDriver registers a storage driver by name.
// Panics if driver is nil or the name is already registered.
func RegisterStorageDriver(name string, driver StorageDriver) {
	storageDriversMu.Lock()
	defer storageDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStorageDriver)
	}
	if _, exists := storageDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storageDrivers[name] = driver
}

// OpenStorage opens a storage connection using the named driver.
//
// Example:
//
//	storage, err := mustache.OpenStorage("memory", "")
//	storage, err := mustache.OpenStorage("filesystem", "/path/to/partials")
func OpenStorage(driverName, connectionString string) (PartialStorage, error) {
	storageDriversMu.RLock()
	driver, ok := storageDrivers[driverName]
	storageDriversMu.RUnlock()

	if !ok {
		return nil, NewStorageDriverNotFoundError(driverName)
	}

	return driver.Open(connectionString)
}

// ListStorageDrivers returns the names of all registered storage drivers, sorted.
func ListStorageDrivers() []string {
	storageDriversMu.RLock()
	defer storageDriversMu.RUnlock()

	names := make([]string, 0, len(storageDrivers))
	for name := range storageDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Storage error message constants
const (
	ErrMsgNilStorageDriver        = "storage driver is nil"
	ErrMsgDriverAlreadyRegistered = "storage driver already registered"
	ErrMsgStorageDriverNotFound   = "storage driver not found"
	ErrMsgStorageClosed           = "storage is closed"
	ErrMsgPartialNotFound         = "partial not found"
	ErrMsgInvalidPartialName      = "invalid partial name"
	ErrMsgNilPartial              = "partial cannot be nil"
	ErrMsgWatchAlreadyRunning     = "partial watcher already running"
)

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
	Name    string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageDriverNotFoundError creates an error for a missing storage driver.
func NewStorageDriverNotFoundError(name string) error {
	return &StorageError{Message: ErrMsgStorageDriverNotFound, Name: name}
}

// NewPartialNotFoundError creates an error for a partial missing from storage.
func NewPartialNotFoundError(name string) error {
	return &StorageError{Message: ErrMsgPartialNotFound, Name: name}
}

// NewStorageClosedError creates an error for operations on closed storage.
func NewStorageClosedError() error {
	return &StorageError{Message: ErrMsgStorageClosed}
}

// NewInvalidPartialNameError creates an error for names a backend cannot store.
func NewInvalidPartialNameError(name string) error {
	return &StorageError{Message: ErrMsgInvalidPartialName, Name: name}
}

// IsPartialNotFound reports whether err says a partial is missing from storage.
func IsPartialNotFound(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Message == ErrMsgPartialNotFound
}

// IsStorageClosed reports whether err came from a closed storage.
func IsStorageClosed(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Message == ErrMsgStorageClosed
}

func validatePartial(p *StoredPartial) error {
	if p == nil {
		return &StorageError{Message: ErrMsgNilPartial}
	}
	if p.Name == "" {
		return NewInvalidPartialNameError(p.Name)
	}
	return nil
}
