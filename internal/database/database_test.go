package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host:     "db.local",
		Port:     "5432",
		Username: "ss",
		Password: "pw",
		Database: "stellasora",
	})
	assert.Equal(t, "host=db.local port=5432 user=ss password=pw dbname=stellasora sslmode=disable", dsn)
}

func TestOpenSqlite_MemoryDatabasesAreIsolated(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))
	require.NoError(t, a.Create(&model.SavedBuild{Name: "only in a"}).Error)

	assert.True(t, a.Migrator().HasTable(&model.SavedBuild{}))
	assert.False(t, b.Migrator().HasTable(&model.SavedBuild{}))
}

func TestMigrate_CreatesSchemaInfoOnce(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var infos []model.SchemaInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, AppName, infos[0].AppName)
	assert.Equal(t, model.SchemaVersion, infos[0].SchemaVersion)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.SavedBuild{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "nested", "builds.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// second dump replaces the first
	require.NoError(t, TimedDump(db, path, zerolog.Nop()))

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var got model.SavedBuild
	require.NoError(t, disk.First(&got).Error)
	assert.Equal(t, "dumped", got.Name)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManager_FallsBackToSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop(), path)

	// nothing listens on port 1
	err := m.Connect(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "x", Database: "x"})
	require.NoError(t, err)
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.ScoreRecord{}))
	require.NoError(t, m.Close())
}
