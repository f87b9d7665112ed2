package database

import (
	"path/filepath"
	"testing"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionPool_Sqlite(t *testing.T) {
	cfg := &config.Config{
		EnvType:  "LOCAL",
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "nested", "alerts.db"),
	}

	pool, err := NewConnectionPool(cfg)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, pool.Migrate("auto"))
	assert.NoError(t, pool.HealthCheck())

	for _, m := range AllModels() {
		assert.True(t, pool.DB.Migrator().HasTable(m), "%T", m)
	}

	require.NoError(t, pool.DB.Create(&models.Alert{SenderID: "s-1", BuildingID: "25"}).Error)
	require.NoError(t, pool.Migrate("drop"))

	var count int64
	pool.DB.Model(&models.Alert{}).Count(&count)
	assert.Zero(t, count, "drop模式应清空表")

	stats, err := pool.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["max_open_connections"])
}

func TestNewConnectionPool_UnknownDriver(t *testing.T) {
	_, err := NewConnectionPool(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
