package build

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/hidet-go/hidet/herrors"
)

// LoadedSharedLibrary is a reference-counted handle to a dlopen'd
// shared library, grounded on the original importer's
// LoadedSharedLibrary (a Dict[str, ctypes.CDLL] keyed by path plus a
// parallel reference-count dict). purego gives a cgo-free dlopen/
// dlsym/dlclose binding, the non-cgo analogue of ctypes.CDLL here.
type LoadedSharedLibrary struct {
	path   string
	handle uintptr
	cache  *LibraryCache
}

// Symbol resolves name against the library's exported symbols.
func (l *LoadedSharedLibrary) Symbol(name string) (uintptr, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, herrors.New(herrors.KindLoad, "build.Symbol", fmt.Errorf("symbol %q not found in %q: %w", name, l.path, err))
	}
	return sym, nil
}

// Close releases this handle's reference; the underlying dlopen handle
// is only dlclose'd once the last reference is released.
func (l *LoadedSharedLibrary) Close() error {
	return l.cache.release(l.path)
}

// LibraryCache is a table from absolute library path to an open handle
// plus reference count, scoped to an instance rather than package-level
// globals (SPEC_FULL.md §9, the note on the library table) — one default
// process-wide instance is still exposed via Libraries for callers that
// don't need isolation.
type LibraryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	handle uintptr
	refs   int
}

// NewLibraryCache returns an empty cache.
func NewLibraryCache() *LibraryCache {
	return &LibraryCache{entries: map[string]*cacheEntry{}}
}

var defaultLibraries = NewLibraryCache()

// Libraries returns the process-wide default LibraryCache.
func Libraries() *LibraryCache { return defaultLibraries }

// Load opens (or returns an existing, reference-incremented handle for)
// the shared library at path.
func (c *LibraryCache) Load(path string) (*LoadedSharedLibrary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		e.refs++
		return &LoadedSharedLibrary{path: path, handle: e.handle, cache: c}, nil
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, herrors.New(herrors.KindLoad, "build.LibraryCache.Load", fmt.Errorf("dlopen %q: %w", path, err))
	}
	c.entries[path] = &cacheEntry{handle: handle, refs: 1}
	return &LoadedSharedLibrary{path: path, handle: handle, cache: c}, nil
}

// RefCount reports the current reference count for path, 0 if not
// loaded — exposed for tests exercising the reference-counting
// contract.
func (c *LibraryCache) RefCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		return 0
	}
	return e.refs
}

func (c *LibraryCache) release(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		return herrors.New(herrors.KindLoad, "build.LibraryCache.release", fmt.Errorf("%q is not loaded in this cache", path))
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(c.entries, path)
	return purego.Dlclose(e.handle)
}
