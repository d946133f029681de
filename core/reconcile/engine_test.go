package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"oss-manager/core/catalog"
	"oss-manager/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory Catalog.
type fakeCatalog struct {
	mu      sync.Mutex
	entries map[string]catalog.Entry
	loads   int
	err     error
}

func newFakeCatalog(entries ...catalog.Entry) *fakeCatalog {
	c := &fakeCatalog{entries: make(map[string]catalog.Entry)}
	for _, e := range entries {
		c.entries[e.Path] = e
	}
	return c
}

func (c *fakeCatalog) Enabled() bool { return true }

func (c *fakeCatalog) Find(_ context.Context, _, path string) (*catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	e, ok := c.entries[path]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *fakeCatalog) Entries(_ context.Context, _, _ string) ([]catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out, nil
}

func (c *fakeCatalog) Record(_ context.Context, e catalog.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Path] = e
	return c.err
}

func (c *fakeCatalog) Forget(_ context.Context, _, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
	return c.err
}

func (c *fakeCatalog) Resize(_ context.Context, _, path string, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[path]
	e.Size = size
	c.entries[path] = e
	return c.err
}

func listing(objects ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objects))
	for _, o := range objects {
		ch <- o
	}
	close(ch)
	return ch
}

// setupStore returns a storage mock whose bucket holds objects. Each call to
// ListObjects gets a fresh channel.
func setupStore(bucket string, objects ...minio.ObjectInfo) *mocks.Client {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, bucket).Return(true, nil)
	client.On("ListObjects", mock.Anything, bucket, mock.Anything).
		Return(func() <-chan minio.ObjectInfo { return listing(objects...) }()).Once()
	return client
}

func TestReconcileAll(t *testing.T) {
	cat := newFakeCatalog(
		catalog.Entry{Bucket: "media", Path: "a.bin", Size: 3},
		catalog.Entry{Bucket: "media", Path: "b.bin", Size: 4},
		catalog.Entry{Bucket: "media", Path: "gone.bin", Size: 1},
	)
	client := setupStore("media",
		minio.ObjectInfo{Key: "a.bin", Size: 3},
		minio.ObjectInfo{Key: "b.bin", Size: 7},
		minio.ObjectInfo{Key: "reports/"},
		minio.ObjectInfo{Key: "stray.png", Size: 10},
	)

	results, err := ReconcileAll(context.Background(), &Spec{Bucket: "media"}, cat, client)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "a.bin", results[0].Path)
	assert.True(t, results[0].CatalogPresent)
	assert.True(t, results[0].StoragePresent)
	assert.Empty(t, results[0].Mismatch)

	assert.Equal(t, "b.bin", results[1].Path)
	assert.Equal(t, []string{"size: catalog=4 storage=7"}, results[1].Mismatch)

	assert.Equal(t, "gone.bin", results[2].Path)
	assert.False(t, results[2].StoragePresent)

	assert.Equal(t, "stray.png", results[3].Path)
	assert.False(t, results[3].CatalogPresent)
	assert.Equal(t, int64(-1), results[3].CatalogSize)
}

func TestBuildCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("CatalogDisabled", func(t *testing.T) {
		var disabled *catalog.Catalog
		_, err := BuildCache(ctx, &Spec{Bucket: "media"}, disabled, new(mocks.Client))
		assert.ErrorIs(t, err, ErrCatalogDisabled)
	})

	t.Run("BucketMissing", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "media").Return(false, nil)

		_, err := BuildCache(ctx, &Spec{Bucket: "media"}, newFakeCatalog(), client)
		assert.ErrorIs(t, err, ErrBucketNotFound)
	})

	t.Run("CatalogLoadError", func(t *testing.T) {
		cat := newFakeCatalog()
		cat.err = errors.New("db error")
		client := setupStore("media")

		_, err := BuildCache(ctx, &Spec{Bucket: "media"}, cat, client)
		assert.ErrorContains(t, err, "db error")
	})

	t.Run("ListingError", func(t *testing.T) {
		client := setupStore("media", minio.ObjectInfo{Err: errors.New("access denied")})

		_, err := BuildCache(ctx, &Spec{Bucket: "media"}, newFakeCatalog(), client)
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestGetOrBuildCache_ReusesFreshCache(t *testing.T) {
	spec := &Spec{Bucket: "cached", Prefix: "p/", CacheTTL: time.Minute}
	t.Cleanup(func() { InvalidateCache(spec) })
	cat := newFakeCatalog()
	client := setupStore("cached", minio.ObjectInfo{Key: "p/a.bin", Size: 1})

	first, err := GetOrBuildCache(context.Background(), spec, cat, client)
	require.NoError(t, err)
	second, err := GetOrBuildCache(context.Background(), spec, cat, client)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cat.loads)
	client.AssertNumberOfCalls(t, "ListObjects", 1)
}

func storedCaches() int {
	globalCacheStore.mu.RLock()
	defer globalCacheStore.mu.RUnlock()
	return len(globalCacheStore.caches)
}

func TestGetOrBuildCache_WithoutTTLStoresNothing(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "uncached").Return(true, nil)
	client.On("ListObjects", mock.Anything, "uncached", mock.Anything).Return(nil)

	before := storedCaches()
	for i := 0; i < 20; i++ {
		spec := &Spec{Bucket: "uncached", Prefix: fmt.Sprintf("p%d/", i)}
		_, _, err := ReconcileAndApply(ctx, spec, newFakeCatalog(), client, Options{})
		require.NoError(t, err)
	}

	assert.Equal(t, before, storedCaches())
	client.AssertNumberOfCalls(t, "ListObjects", 20)
}

func TestInvalidateBucket(t *testing.T) {
	ctx := context.Background()
	specs := []*Spec{
		{Bucket: "inv", Prefix: "a/", CacheTTL: time.Minute},
		{Bucket: "inv", Prefix: "b/", CacheTTL: time.Minute},
		{Bucket: "inv-other", CacheTTL: time.Minute},
	}
	t.Cleanup(func() {
		for _, spec := range specs {
			InvalidateCache(spec)
		}
	})

	for _, spec := range specs {
		client := setupStore(spec.Bucket)
		_, err := GetOrBuildCache(ctx, spec, newFakeCatalog(), client)
		require.NoError(t, err)
	}
	before := storedCaches()

	InvalidateBucket("inv")

	assert.Equal(t, before-2, storedCaches())
	globalCacheStore.mu.RLock()
	_, kept := globalCacheStore.caches[specs[2].CacheKey()]
	globalCacheStore.mu.RUnlock()
	assert.True(t, kept)
}

func TestReconcileOne(t *testing.T) {
	ctx := context.Background()
	spec := &Spec{Bucket: "media"}

	t.Run("BothPresent", func(t *testing.T) {
		cat := newFakeCatalog(catalog.Entry{Path: "a.bin", Size: 3})
		client := new(mocks.Client)
		client.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{Key: "a.bin", Size: 3}, nil)

		result, err := ReconcileOne(ctx, spec, cat, client, "a.bin")
		require.NoError(t, err)
		assert.True(t, result.CatalogPresent)
		assert.True(t, result.StoragePresent)
		client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ObjectMissing", func(t *testing.T) {
		cat := newFakeCatalog(catalog.Entry{Path: "a.bin", Size: 3})
		client := new(mocks.Client)
		client.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).
			Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})

		result, err := ReconcileOne(ctx, spec, cat, client, "a.bin")
		require.NoError(t, err)
		assert.True(t, result.CatalogPresent)
		assert.False(t, result.StoragePresent)
	})

	t.Run("StatFailure", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, errors.New("timeout"))

		_, err := ReconcileOne(ctx, spec, newFakeCatalog(), client, "a.bin")
		assert.ErrorContains(t, err, "timeout")
	})
	t.Run("UsesCache", func(t *testing.T) {
		cached := &Spec{Bucket: "media-one", CacheTTL: time.Minute}
		t.Cleanup(func() { InvalidateCache(cached) })
		cat := newFakeCatalog(catalog.Entry{Path: "a.bin", Size: 3})
		client := setupStore("media-one", minio.ObjectInfo{Key: "a.bin", Size: 5})

		for i := 0; i < 2; i++ {
			result, err := ReconcileOne(ctx, cached, cat, client, "a.bin")
			require.NoError(t, err)
			assert.True(t, result.StoragePresent)
			assert.NotEmpty(t, result.Mismatch)
		}
		client.AssertNumberOfCalls(t, "ListObjects", 1)
		client.AssertNotCalled(t, "StatObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
