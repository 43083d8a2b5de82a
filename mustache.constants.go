package mustache

import (
	"os"
	"time"

	"github.com/itsatony/go-mustache/internal"
)

// Delimiter constants - the classic {{ }} pair
const (
	DefaultOpenDelim  = internal.DefaultOpenDelim
	DefaultCloseDelim = internal.DefaultCloseDelim
)

// Default configuration values
const (
	DefaultIteratorKey = internal.DefaultIteratorKey
	DefaultMaxDepth    = internal.DefaultMaxDepth
)

// Pragma names
const (
	PragmaImplicitIterator = internal.PragmaImplicitIterator
)

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
	StorageDriverNameSQLite     = "sqlite"
)

// Filesystem storage constants
const (
	FilesystemDirPermissions  os.FileMode = 0755
	FilesystemFilePermissions os.FileMode = 0644
	FilesystemPartialExt                  = ".mustache"
	FilesystemForbiddenChars              = "/\\:*?\"<>|"
	FilesystemTraversalMarker             = ".."
)

// PostgreSQL storage driver configuration defaults
const (
	PostgresDriverName             = "postgres"
	PostgresTablePrefix            = "mustache_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
)

// SQLite storage constants
const (
	SQLiteTableName  = "mustache_partials"
	SQLiteDefaultDSN = ":memory:"
)

// Log message constants
const (
	LogMsgEngineCreated      = "engine created"
	LogMsgTemplateParsed     = "template parsed"
	LogMsgTemplateRendered   = "template rendered"
	LogMsgPartialRegistered  = "partial registered"
	LogMsgStorageLoad        = "loading partial from storage"
	LogMsgWatchStarted       = "watching partial directory"
	LogMsgWatchEvent         = "partial file changed"
	LogMsgWatchUnchanged     = "partial file event without content change"
	LogMsgWatchError         = "partial watcher error"
	LogMsgWatchStopped       = "partial watcher stopped"
	LogMsgStorageMigrated    = "storage schema migrated"
	LogMsgRenderWriteFailure = "render output write failed"
)

// Log field names
const (
	LogFieldPartial  = "partial"
	LogFieldPartials = "partial_count"
	LogFieldOps      = "op_count"
	LogFieldBytes    = "bytes"
	LogFieldRoot     = "root"
	LogFieldPath     = "path"
	LogFieldDigest   = "digest"
	LogFieldOpen     = "open"
	LogFieldClose    = "close"
	LogFieldIterator = "iterator"
	LogFieldMaxDepth = "max_depth"
	LogFieldTable    = "table"
	LogFieldSchema   = "schema_version"
)
