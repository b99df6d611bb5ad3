package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"courseplanner-backend/internal/components/configutil"
	"courseplanner-backend/internal/store/sqlite"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// nightly
		schedule: "30 2 * * *",
		subjects: ["CSE", "MATH"],
		store: { driver: "sqlite", sqlite: { file: "planner.db" } },
		browser: { navigation_timeout: 60 },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		store: { sqlite: { file: "local.db" } },
		smtp: { server: "localhost", port: 1025, recipients: ["ops@example.com"] },
	}`), 0644))

	cfg, err := configutil.ReadConfig[Config](path)
	require.NoError(t, err)
	require.Equal(t, "30 2 * * *", cfg.schedule())
	require.Equal(t, []string{"CSE", "MATH"}, cfg.Subjects)
	require.Equal(t, "local.db", cfg.Store.Sqlite.File)
	require.Equal(t, 60, cfg.Browser.NavigationTimeout)
	require.True(t, cfg.Smtp.Enabled())
}

func TestDefaultSchedule(t *testing.T) {
	require.Equal(t, defaultSchedule, Config{}.schedule())
}

func TestOpenStore(t *testing.T) {
	db, err := openStore(context.Background(), StoreConfig{Sqlite: sqlite.Config{File: ":memory:"}})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = openStore(context.Background(), StoreConfig{Driver: "postgres"})
	require.Error(t, err)
}
