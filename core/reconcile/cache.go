package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"oss-manager/core/catalog"
	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrCatalogDisabled is returned when no catalog database is configured.
	ErrCatalogDisabled = errors.New("reconcile: catalog is disabled")
	// ErrBucketNotFound is returned when the bucket to reconcile does not exist.
	ErrBucketNotFound = errors.New("reconcile: bucket not found")
)

// Cache holds pre-built indices of both sides.
type Cache struct {
	// CatalogIndex maps paths to catalog entries.
	CatalogIndex map[string]catalog.Entry

	// StorageIndex maps paths to listed objects.
	StorageIndex map[string]minio.ObjectInfo

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *Cache) IsExpired() bool {
	if c.TTL == 0 {
		return true
	}
	return time.Since(c.Built) > c.TTL
}

type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	sf     singleflight.Group
}

var globalCacheStore = &cacheStore{
	caches: make(map[string]*Cache),
}

// BuildCache loads both indices concurrently. It does not store the result;
// use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec, cat Catalog, client storage.Client) (*Cache, error) {
	if cat == nil || !cat.Enabled() {
		return nil, ErrCatalogDisabled
	}
	exists, err := client.BucketExists(ctx, spec.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", spec.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, spec.Bucket)
	}

	var (
		catalogIndex map[string]catalog.Entry
		storageIndex map[string]minio.ObjectInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := cat.Entries(gctx, spec.Bucket, spec.Prefix)
		if err != nil {
			return err
		}
		catalogIndex = make(map[string]catalog.Entry, len(entries))
		for _, e := range entries {
			catalogIndex[e.Path] = e
		}
		return nil
	})
	g.Go(func() error {
		var err error
		storageIndex, err = loadStorageIndex(gctx, client, spec.Bucket, spec.Prefix)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Cache{
		CatalogIndex: catalogIndex,
		StorageIndex: storageIndex,
		Built:        time.Now(),
		TTL:          spec.CacheTTL,
	}, nil
}

// loadStorageIndex lists every object under prefix in a single recursive pass.
func loadStorageIndex(ctx context.Context, client storage.Client, bucket, prefix string) (map[string]minio.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	index := make(map[string]minio.ObjectInfo)
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		index[obj.Key] = obj
	}
	return index, nil
}

// GetOrBuildCache returns the stored cache for spec, rebuilding it when missing
// or expired. Concurrent rebuilds of the same key are collapsed. Without a
// positive TTL the indices are built for this call only and never stored.
func GetOrBuildCache(ctx context.Context, spec *Spec, cat Catalog, client storage.Client) (*Cache, error) {
	if spec.CacheTTL <= 0 {
		return BuildCache(ctx, spec, cat, client)
	}
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (any, error) {
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec, cat, client)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Cache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
func InvalidateCache(spec *Spec) {
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, spec.CacheKey())
	globalCacheStore.mu.Unlock()
}

// InvalidateBucket removes every cache built for bucket, whatever its prefix.
func InvalidateBucket(bucket string) {
	keyPrefix := (&Spec{Bucket: bucket}).CacheKey()
	globalCacheStore.mu.Lock()
	for key := range globalCacheStore.caches {
		if strings.HasPrefix(key, keyPrefix) {
			delete(globalCacheStore.caches, key)
		}
	}
	globalCacheStore.mu.Unlock()
}
