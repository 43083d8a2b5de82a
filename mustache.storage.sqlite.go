package mustache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/soft_delete"
)

// SQLite storage error messages
const (
	ErrMsgSQLiteOpenFailed    = "failed to open SQLite database"
	ErrMsgSQLiteMigrateFailed = "SQLite migration failed"
	ErrMsgSQLiteQueryFailed   = "SQLite query failed"
)

// sqlitePartial is the row model. Deleted rows stay in the table with
// the flag set until Purge removes them.
type sqlitePartial struct {
	Name      string `gorm:"primarykey"`
	Source    string
	Digest    string `gorm:"index:idx_mustache_partials_digest"`
	UpdatedAt time.Time
	Deleted   soft_delete.DeletedAt `gorm:"softDelete:flag;default:0"`
}

func (sqlitePartial) TableName() string {
	return SQLiteTableName
}

// SQLiteStorage implements PartialStorage on a SQLite database through gorm.
// Deletes are soft: a deleted partial is hidden from Get, List and Exists,
// and saving it again brings the row back.
type SQLiteStorage struct {
	db     *gorm.DB
	mu     sync.RWMutex
	closed bool
}

// SQLiteStorageDriver is the driver for creating SQLiteStorage instances.
type SQLiteStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameSQLite, &SQLiteStorageDriver{})
}

// Open creates a new SQLiteStorage instance.
// The connection string is the database path; empty means in-memory.
func (d *SQLiteStorageDriver) Open(connectionString string) (PartialStorage, error) {
	return NewSQLiteStorage(connectionString)
}

// NewSQLiteStorage opens (or creates) the database at dsn and migrates the
// partials table.
func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	if dsn == "" {
		dsn = SQLiteDefaultDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteOpenFailed, Name: dsn, Cause: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteOpenFailed, Name: dsn, Cause: err}
	}
	// A single connection keeps in-memory databases alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sqlitePartial{}); err != nil {
		_ = sqlDB.Close()
		return nil, &StorageError{Message: ErrMsgSQLiteMigrateFailed, Name: dsn, Cause: err}
	}

	return &SQLiteStorage{db: db}, nil
}

// Get retrieves a partial by name.
func (s *SQLiteStorage) Get(ctx context.Context, name string) (*StoredPartial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	var row sqlitePartial
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewPartialNotFoundError(name)
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}

	return &StoredPartial{
		Name:      row.Name,
		Source:    row.Source,
		Digest:    row.Digest,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Save creates or replaces a partial, reviving it if it was deleted.
func (s *SQLiteStorage) Save(ctx context.Context, p *StoredPartial) error {
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

	row := sqlitePartial{
		Name:      p.Name,
		Source:    p.Source,
		Digest:    PartialDigest(p.Source),
		UpdatedAt: time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&sqlitePartial{}).Where("name = ?", row.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(&row).Error
		}
		return tx.Unscoped().Model(&sqlitePartial{}).Where("name = ?", row.Name).Updates(map[string]any{
			"source":     row.Source,
			"digest":     row.Digest,
			"updated_at": row.UpdatedAt,
			"deleted":    0,
		}).Error
	})
	if err != nil {
		return &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: p.Name, Cause: err}
	}

	p.Digest = row.Digest
	p.UpdatedAt = row.UpdatedAt
	return nil
}

// Delete soft-deletes a partial by name.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&sqlitePartial{})
	if result.Error != nil {
		return &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: result.Error}
	}
	if result.RowsAffected == 0 {
		return NewPartialNotFoundError(name)
	}
	return nil
}

// List returns the names of all live partials, sorted.
func (s *SQLiteStorage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	names := []string{}
	if err := s.db.WithContext(ctx).Model(&sqlitePartial{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Cause: err}
	}
	return names, nil
}

// Exists checks if a live partial with the given name exists.
func (s *SQLiteStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&sqlitePartial{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}
	return count > 0, nil
}

// Purge permanently removes soft-deleted rows and reports how many were removed.
func (s *SQLiteStorage) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, NewStorageClosedError()
	}

	result := s.db.WithContext(ctx).Unscoped().Where("deleted = ?", 1).Delete(&sqlitePartial{})
	if result.Error != nil {
		return 0, &StorageError{Message: ErrMsgSQLiteQueryFailed, Cause: result.Error}
	}
	return result.RowsAffected, nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
