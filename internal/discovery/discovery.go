// Package discovery resolves which partition files belong to a tenant by
// walking the directory layout. The path encoding
// <root>/tenant=<tenant>/date=<YYYY-MM-DD>/<file> is the store's only
// catalog; no metadata index exists.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/paylake/internal/logging"
)

var log = logging.Component("discovery")

// FileExt is the partition file extension collected by walks.
const FileExt = ".parquet"

// TenantDir returns the partition root for a tenant.
func TenantDir(root, tenant string) string {
	return filepath.Join(root, "tenant="+tenant)
}

// Files enumerates every partition file belonging to the tenant, across
// all date partitions, in no guaranteed order. An absent tenant root is
// not an error: it returns an empty list. Directories that cannot be read
// are skipped.
func Files(ctx context.Context, root, tenant string) ([]string, error) {
	dir := TenantDir(root, tenant)

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		// Unreadable tenant root: treat like an unreadable subdirectory.
		log.Warn("tenant root not readable", "dir", dir, "error", err)
		return nil, nil
	}

	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Permission or race-deleted entry: skip, not fatal.
			log.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), FileExt) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}

// Cache memoizes per-tenant file lists with a TTL, so repeated queries do
// not re-walk the directory tree. Concurrent lookups for the same tenant
// are deduplicated into a single walk.
type Cache struct {
	root string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	files  []string
	loaded time.Time
}

// NewCache creates a cache over the given events root. A non-positive TTL
// disables caching: every lookup walks the tree.
func NewCache(root string, ttl time.Duration) *Cache {
	return &Cache{
		root:    root,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Files returns the tenant's partition files, from cache when fresh.
func (c *Cache) Files(ctx context.Context, tenant string) ([]string, error) {
	if c.ttl <= 0 {
		return Files(ctx, c.root, tenant)
	}

	c.mu.RLock()
	entry, ok := c.entries[tenant]
	c.mu.RUnlock()

	if ok && time.Since(entry.loaded) < c.ttl {
		return entry.files, nil
	}

	v, err, _ := c.group.Do(tenant, func() (interface{}, error) {
		files, err := Files(ctx, c.root, tenant)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[tenant] = cacheEntry{files: files, loaded: time.Now()}
		c.mu.Unlock()
		return files, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Invalidate drops the cached file list for a tenant. Call after a
// generation run so new files become visible before the TTL expires.
func (c *Cache) Invalidate(tenant string) {
	c.mu.Lock()
	delete(c.entries, tenant)
	c.mu.Unlock()
}

// InvalidateAll drops every cached file list.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
