package reconcile

import (
	"context"
	"fmt"
	"sort"

	"oss-manager/core/catalog"
	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
)

// SourceReconcile marks catalog entries created by a reconciliation.
const SourceReconcile = "reconcile"

// ReconcileAll compares every catalogued path with every stored object under
// the spec's prefix and returns one result per path, sorted by path.
func ReconcileAll(ctx context.Context, spec *Spec, cat Catalog, client storage.Client) ([]Result, error) {
	cache, err := GetOrBuildCache(ctx, spec, cat, client)
	if err != nil {
		return nil, err
	}
	return resultsFromCache(cache), nil
}

// ReconcileOne reconciles a single path. It uses the cached indices when
// caching is enabled and targeted lookups otherwise.
func ReconcileOne(ctx context.Context, spec *Spec, cat Catalog, client storage.Client, path string) (*Result, error) {
	if spec.CacheTTL > 0 {
		cache, err := GetOrBuildCache(ctx, spec, cat, client)
		if err != nil {
			return nil, err
		}
		result := buildResult(path, cache.CatalogIndex, cache.StorageIndex)
		return &result, nil
	}

	if cat == nil || !cat.Enabled() {
		return nil, ErrCatalogDisabled
	}

	catalogIndex := map[string]catalog.Entry{}
	entry, err := cat.Find(ctx, spec.Bucket, path)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		catalogIndex[path] = *entry
	}

	storageIndex := map[string]minio.ObjectInfo{}
	info, err := client.StatObject(ctx, spec.Bucket, path, minio.StatObjectOptions{})
	switch {
	case err == nil:
		storageIndex[path] = info
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return nil, fmt.Errorf("failed to stat %s/%s: %w", spec.Bucket, path, err)
	}

	result := buildResult(path, catalogIndex, storageIndex)
	return &result, nil
}

func resultsFromCache(cache *Cache) []Result {
	union := make(map[string]struct{}, len(cache.CatalogIndex)+len(cache.StorageIndex))
	for path := range cache.CatalogIndex {
		union[path] = struct{}{}
	}
	for path := range cache.StorageIndex {
		union[path] = struct{}{}
	}

	results := make([]Result, 0, len(union))
	for path := range union {
		results = append(results, buildResult(path, cache.CatalogIndex, cache.StorageIndex))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results
}

func buildResult(path string, catalogIndex map[string]catalog.Entry, storageIndex map[string]minio.ObjectInfo) Result {
	entry, catalogPresent := catalogIndex[path]
	info, storagePresent := storageIndex[path]

	result := Result{
		Path:           path,
		CatalogPresent: catalogPresent,
		StoragePresent: storagePresent,
		CatalogSize:    -1,
		Mismatch:       []string{},
	}
	if catalogPresent {
		result.CatalogSize = entry.Size
	}
	if storagePresent {
		result.StorageSize = info.Size
	}

	if catalogPresent && storagePresent && entry.Size != info.Size {
		result.Mismatch = append(result.Mismatch, fmt.Sprintf("size: catalog=%d storage=%d", entry.Size, info.Size))
	}
	return result
}
