package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewRepositories(t *testing.T) {
	db := newTestGormDB(t)

	repos := NewRepositories(db, "sqlite")
	require.NotNil(t, repos)
	assert.NotNil(t, repos.Run)
}

func TestRepositories_Close(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	err := repos.Close()
	assert.NoError(t, err)
}

func TestRepositories_DB(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	sqlDB := repos.DB()
	assert.NotNil(t, sqlDB)
}

func TestRepositories_GormDB(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	gormDB := repos.GormDB()
	assert.Equal(t, db, gormDB)
}

func TestRepositories_AutoMigrate(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	err := repos.AutoMigrate()
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&RunRecord{}))
}

func TestDBConfig_Validation(t *testing.T) {
	t.Run("ValidPostgresConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "postgres",
			Host:     "localhost",
			Port:     5432,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
		}
		assert.Equal(t, "postgres", cfg.Type)
		assert.Equal(t, 5432, cfg.Port)
	})

	t.Run("ValidMySQLConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "mysql",
			Host:     "localhost",
			Port:     3306,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
		}
		assert.Equal(t, "mysql", cfg.Type)
		assert.Equal(t, 3306, cfg.Port)
	})

	t.Run("ValidSQLiteConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "sqlite",
			Database: "/tmp/sptrsv.db",
		}
		assert.Equal(t, "sqlite", cfg.Type)
	})

	t.Run("ValidClickHouseConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "clickhouse",
			Host:     "localhost",
			Port:     9000,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
		}
		assert.Equal(t, "clickhouse", cfg.Type)
		assert.Equal(t, 9000, cfg.Port)
	})
}

func TestNewGormDB_UnsupportedType(t *testing.T) {
	_, err := NewGormDB(&DBConfig{Type: "oracle"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestNewGormDB_SQLite(t *testing.T) {
	db, err := NewGormDB(&DBConfig{Type: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
}
