package mustache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tevino/abool/v2"
	"go.uber.org/zap"
)

// FilesystemStorage stores each partial as a plain template file.
//
// Directory structure:
//
//	<root>/
//	  header.mustache
//	  footer.mustache
//	  ...
type FilesystemStorage struct {
	mu       sync.RWMutex
	root     string
	closed   bool
	watching *abool.AtomicBool
	logger   *zap.Logger
}

// FilesystemStorageDriver is the driver for creating FilesystemStorage instances.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a new FilesystemStorage instance.
// The connection string is the root directory path.
func (d *FilesystemStorageDriver) Open(connectionString string) (PartialStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// Filesystem storage error messages
const (
	ErrMsgInvalidStorageRoot    = "invalid storage root path"
	ErrMsgCreateStorageDir      = "failed to create storage directory"
	ErrMsgReadStorageDir        = "failed to read storage directory"
	ErrMsgReadPartial           = "failed to read partial file"
	ErrMsgWritePartial          = "failed to write partial file"
	ErrMsgDeletePartial         = "failed to delete partial file"
	ErrMsgPathTraversalDetected = "path traversal detected in partial name"
	ErrMsgWatchFailed           = "failed to watch storage directory"
)

// NewFilesystemStorage creates a new filesystem-based partial storage.
// The root directory will be created if it doesn't exist.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}

	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StorageError{
			Message: ErrMsgCreateStorageDir,
			Name:    root,
			Cause:   err,
		}
	}

	return &FilesystemStorage{
		root:     root,
		watching: abool.NewBool(false),
		logger:   zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used by Watch. Returns s for chaining.
func (s *FilesystemStorage) WithLogger(logger *zap.Logger) *FilesystemStorage {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Root returns the storage directory.
func (s *FilesystemStorage) Root() string {
	return s.root
}

// Get retrieves a partial by name.
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredPartial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePartialNameForFilesystem(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	path := s.partialPath(name)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, NewPartialNotFoundError(name)
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadPartial, Name: name, Cause: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadPartial, Name: name, Cause: err}
	}

	source := string(data)
	return &StoredPartial{
		Name:      name,
		Source:    source,
		Digest:    PartialDigest(source),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Save writes the partial file, replacing any previous content.
func (s *FilesystemStorage) Save(ctx context.Context, p *StoredPartial) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePartial(p); err != nil {
		return err
	}
	if err := validatePartialNameForFilesystem(p.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	if err := os.WriteFile(s.partialPath(p.Name), []byte(p.Source), FilesystemFilePermissions); err != nil {
		return &StorageError{Message: ErrMsgWritePartial, Name: p.Name, Cause: err}
	}

	p.Digest = PartialDigest(p.Source)
	p.UpdatedAt = time.Now()
	return nil
}

// Delete removes a partial file.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePartialNameForFilesystem(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	err := os.Remove(s.partialPath(name))
	if os.IsNotExist(err) {
		return NewPartialNotFoundError(name)
	}
	if err != nil {
		return &StorageError{Message: ErrMsgDeletePartial, Name: name, Cause: err}
	}
	return nil
}

// List returns the names of all partial files in the root directory, sorted.
func (s *FilesystemStorage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := partialNameFromFile(entry.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists checks if a partial file exists.
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validatePartialNameForFilesystem(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	_, err := os.Stat(s.partialPath(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Message: ErrMsgReadPartial, Name: name, Cause: err}
	}
	return true, nil
}

// Close marks the storage as closed. Files are left in place.
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Watch calls onChange with the partial name whenever a partial file is
// created, removed or its content changes. Events that leave the content
// unchanged are dropped. Watch blocks until ctx is done and returns nil
// then. Only one Watch may run at a time per storage.
func (s *FilesystemStorage) Watch(ctx context.Context, onChange func(name string)) error {
	if !s.watching.SetToIf(false, true) {
		return &StorageError{Message: ErrMsgWatchAlreadyRunning, Name: s.root}
	}
	defer s.watching.UnSet()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &StorageError{Message: ErrMsgWatchFailed, Name: s.root, Cause: err}
	}
	defer watcher.Close()

	if err := watcher.Add(s.root); err != nil {
		return &StorageError{Message: ErrMsgWatchFailed, Name: s.root, Cause: err}
	}

	digests := s.snapshotDigests()
	s.logger.Debug(LogMsgWatchStarted,
		zap.String(LogFieldRoot, s.root),
		zap.Int(LogFieldPartials, len(digests)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(LogMsgWatchStopped, zap.String(LogFieldRoot, s.root))
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if name, changed := s.handleEvent(event, digests); changed {
				onChange(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(LogMsgWatchError, zap.String(LogFieldRoot, s.root), zap.Error(err))
		}
	}
}

// handleEvent updates digests for a single event and reports the partial
// name if its content changed.
func (s *FilesystemStorage) handleEvent(event fsnotify.Event, digests map[string]string) (string, bool) {
	name, ok := partialNameFromFile(filepath.Base(event.Name))
	if !ok || validatePartialNameForFilesystem(name) != nil {
		return "", false
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, known := digests[name]; !known {
			return "", false
		}
		delete(digests, name)
		s.logger.Debug(LogMsgWatchEvent, zap.String(LogFieldPartial, name), zap.String(LogFieldPath, event.Name))
		return name, true
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return "", false
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		// The file can vanish between the event and the read; a Remove follows.
		return "", false
	}

	digest := PartialDigest(string(data))
	if digests[name] == digest {
		s.logger.Debug(LogMsgWatchUnchanged, zap.String(LogFieldPartial, name), zap.String(LogFieldDigest, digest))
		return "", false
	}
	digests[name] = digest
	s.logger.Debug(LogMsgWatchEvent,
		zap.String(LogFieldPartial, name),
		zap.String(LogFieldPath, event.Name),
		zap.String(LogFieldDigest, digest),
	)
	return name, true
}

func (s *FilesystemStorage) snapshotDigests() map[string]string {
	digests := make(map[string]string)
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return digests
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := partialNameFromFile(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name()))
		if err != nil {
			continue
		}
		digests[name] = PartialDigest(string(data))
	}
	return digests
}

func (s *FilesystemStorage) partialPath(name string) string {
	return filepath.Join(s.root, name+FilesystemPartialExt)
}

func partialNameFromFile(filename string) (string, bool) {
	if !strings.HasSuffix(filename, FilesystemPartialExt) {
		return "", false
	}
	name := strings.TrimSuffix(filename, FilesystemPartialExt)
	return name, name != ""
}

// validatePartialNameForFilesystem rejects names that would escape the root directory.
func validatePartialNameForFilesystem(name string) error {
	if name == "" {
		return NewInvalidPartialNameError(name)
	}
	if strings.Contains(name, FilesystemTraversalMarker) {
		return &StorageError{Message: ErrMsgPathTraversalDetected, Name: name}
	}
	if strings.ContainsAny(name, FilesystemForbiddenChars) {
		return NewInvalidPartialNameError(name)
	}
	return nil
}
