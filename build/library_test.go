package build_test

import (
	"os"
	"testing"

	"github.com/hidet-go/hidet/build"
	"github.com/stretchr/testify/require"
)

// systemLibrary returns the path to a shared library guaranteed to be
// dlopen-able on the host so these tests don't depend on this
// package's own (external-toolchain-produced) output.
func systemLibrary(t *testing.T) string {
	t.Helper()
	candidates := []string{
		"/lib/x86_64-linux-gnu/libm.so.6",
		"/usr/lib/x86_64-linux-gnu/libm.so.6",
		"/lib64/libm.so.6",
		"/usr/lib64/libm.so.6",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	t.Skip("no system shared library found to exercise dlopen against")
	return ""
}

func TestLibraryCacheRefCounting(t *testing.T) {
	path := systemLibrary(t)
	cache := build.NewLibraryCache()
	require.Equal(t, 0, cache.RefCount(path))

	lib1, err := cache.Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, cache.RefCount(path))

	lib2, err := cache.Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cache.RefCount(path), "a second Load must increment, not reopen")

	require.NoError(t, lib1.Close())
	require.Equal(t, 1, cache.RefCount(path))

	require.NoError(t, lib2.Close())
	require.Equal(t, 0, cache.RefCount(path), "the entry is removed once the last reference releases")
}

func TestLibraryCacheIsolatedFromDefault(t *testing.T) {
	path := systemLibrary(t)
	cache := build.NewLibraryCache()
	_, err := cache.Load(path)
	require.NoError(t, err)

	require.Equal(t, 0, build.Libraries().RefCount(path), "a fresh cache must not share state with the default instance")
}

func TestLoadedSharedLibrarySymbolLookup(t *testing.T) {
	path := systemLibrary(t)
	cache := build.NewLibraryCache()
	lib, err := cache.Load(path)
	require.NoError(t, err)
	defer lib.Close()

	sym, err := lib.Symbol("sqrt")
	require.NoError(t, err)
	require.NotZero(t, sym)

	_, err = lib.Symbol("not_a_real_symbol_name")
	require.Error(t, err)
}
