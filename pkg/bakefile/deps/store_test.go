package deps_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vslavik/bakefile/pkg/bakefile/deps"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) deps.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	t.Run(name+"/Add_and_Get", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.AddDependency("lib.bkl", "gnu", "common.bkl"))
		require.NoError(t, store.AddDependency("lib.bkl", "gnu", "rules/gnu.bkl"))
		require.NoError(t, store.AddOutput("lib.bkl", "gnu", "GNUmakefile"))

		rec, err := store.Get("lib.bkl", "gnu")
		require.NoError(t, err)
		assert.Equal(t, []string{"common.bkl", "rules/gnu.bkl"}, rec.Deps)
		assert.Equal(t, []string{"GNUmakefile"}, rec.Outputs)
	})

	t.Run(name+"/Get_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Get("nonexistent.bkl", "gnu")
		assert.ErrorIs(t, err, deps.ErrNotFound)
	})

	t.Run(name+"/SelfDependency_Ignored", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.AddDependency("lib.bkl", "gnu", "lib.bkl"))

		_, err := store.Get("lib.bkl", "gnu")
		assert.ErrorIs(t, err, deps.ErrNotFound)
	})

	t.Run(name+"/Formats_Separate", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.AddOutput("lib.bkl", "gnu", "GNUmakefile"))
		require.NoError(t, store.AddOutput("lib.bkl", "msvc", "makefile.vc"))

		rec, err := store.Get("lib.bkl", "gnu")
		require.NoError(t, err)
		assert.Equal(t, []string{"GNUmakefile"}, rec.Outputs)

		rec, err = store.Get("lib.bkl", "msvc")
		require.NoError(t, err)
		assert.Equal(t, []string{"makefile.vc"}, rec.Outputs)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		entries, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run(name+"/List_Ordered", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.AddOutput("b.bkl", "gnu", "out-b"))
		require.NoError(t, store.AddOutput("a.bkl", "msvc", "out-a2"))
		require.NoError(t, store.AddOutput("a.bkl", "gnu", "out-a1"))

		entries, err := store.List()
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, deps.Entry{Bakefile: "a.bkl", Format: "gnu"}, entries[0])
		assert.Equal(t, deps.Entry{Bakefile: "a.bkl", Format: "msvc"}, entries[1])
		assert.Equal(t, deps.Entry{Bakefile: "b.bkl", Format: "gnu"}, entries[2])
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.AddDependency("a", "gnu", "b"), deps.ErrStoreClosed)
		assert.ErrorIs(t, store.AddOutput("a", "gnu", "b"), deps.ErrStoreClosed)
		_, err := store.Get("a", "gnu")
		assert.ErrorIs(t, err, deps.ErrStoreClosed)
		_, err = store.List()
		assert.ErrorIs(t, err, deps.ErrStoreClosed)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContractTest(t, "memory", func(t *testing.T) deps.Store {
		return deps.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContractTest(t, "sqlite", func(t *testing.T) deps.Store {
		store, err := deps.NewSQLiteStore(filepath.Join(t.TempDir(), "deps.db"))
		require.NoError(t, err)
		return store
	})
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.db")

	store, err := deps.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.AddDependency("lib.bkl", "gnu", "common.bkl"))
	require.NoError(t, store.Close())

	// Reopen and verify the record survived.
	store, err = deps.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Get("lib.bkl", "gnu")
	require.NoError(t, err)
	assert.Equal(t, []string{"common.bkl"}, rec.Deps)
}

func TestSQLiteStore_DuplicatesCollapsed(t *testing.T) {
	store, err := deps.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AddDependency("lib.bkl", "gnu", "common.bkl"))
	require.NoError(t, store.AddDependency("lib.bkl", "gnu", "common.bkl"))

	rec, err := store.Get("lib.bkl", "gnu")
	require.NoError(t, err)
	assert.Equal(t, []string{"common.bkl"}, rec.Deps)
}

func TestMemoryStore_Len(t *testing.T) {
	store := deps.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())
	require.NoError(t, store.AddOutput("a.bkl", "gnu", "out"))
	require.NoError(t, store.AddOutput("a.bkl", "gnu", "out2"))
	assert.Equal(t, 1, store.Len())
}
