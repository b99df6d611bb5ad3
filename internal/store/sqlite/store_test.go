package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"
	"courseplanner-backend/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) store.Store {
	s, err := Open(Config{File: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openMemory)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(Config{File: path})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateTerm(context.Background(), model.Term{Name: "FA25", IsActive: true}))
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open(Config{})
	require.ErrorIs(t, err, store.ErrPersistence)
}

func TestClosedStoreReportsPersistenceError(t *testing.T) {
	s, err := Open(Config{File: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ActiveTerm(context.Background())
	require.ErrorIs(t, err, store.ErrPersistence)
}
