package mustache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	assert.Equal(t, PostgresDefaultMaxOpenConns, cfg.MaxOpenConns)
	assert.Equal(t, PostgresDefaultMaxIdleConns, cfg.MaxIdleConns)
	assert.Equal(t, PostgresDefaultConnMaxLifetime, cfg.ConnMaxLifetime)
	assert.Equal(t, PostgresDefaultConnMaxIdleTime, cfg.ConnMaxIdleTime)
	assert.Equal(t, PostgresTablePrefix, cfg.TablePrefix)
	assert.Equal(t, PostgresDefaultQueryTimeout, cfg.QueryTimeout)
	assert.False(t, cfg.AutoMigrate)
	assert.Empty(t, cfg.ConnectionString)
}

func TestApplyPostgresDefaults(t *testing.T) {
	cfg := applyPostgresDefaults(PostgresConfig{
		ConnectionString: "postgres://localhost/test?sslmode=disable",
		MaxOpenConns:     3,
	})

	assert.Equal(t, 3, cfg.MaxOpenConns)
	assert.Equal(t, PostgresDefaultMaxIdleConns, cfg.MaxIdleConns)
	assert.Equal(t, PostgresTablePrefix, cfg.TablePrefix)
	assert.Equal(t, PostgresDefaultQueryTimeout, cfg.QueryTimeout)
}

func TestPostgresStorage_TableNames(t *testing.T) {
	s := &PostgresStorage{config: PostgresConfig{TablePrefix: "tpl_"}}
	assert.Equal(t, "tpl_partials", s.tableName())
	assert.Equal(t, "tpl_schema_migrations", s.migrationsTableName())

	migrations := s.getMigrations()
	require.Len(t, migrations, 2)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.Contains(t, m.SQL, "tpl_partials")
	}
}

func TestPostgresStorage_EmptyConnectionString(t *testing.T) {
	_, err := NewPostgresStorage(PostgresConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPostgresEmptyConnString)
}

func TestPostgresStorage_InvalidConnectionString(t *testing.T) {
	_, err := NewPostgresStorage(PostgresConfig{
		ConnectionString: "invalid://not-a-valid-connection-string",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPostgresConnectionFailed)
}

func TestPostgresStorageDriver_Open_EmptyConnectionString(t *testing.T) {
	_, err := OpenStorage(StorageDriverNamePostgres, "")
	require.Error(t, err)
}
