package objects_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"oss-manager/core/catalog"
	"oss-manager/core/oss"
	"oss-manager/core/reconcile"
	"oss-manager/core/storage/mocks"
	"oss-manager/feature/objects"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*fiber.App, *mocks.Client) {
	svc, store := setupService(t, nil, zap.NewNop())
	app := fiber.New()
	objects.NewHandler(svc).RegisterRoutes(app)
	return app, store
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandleBuckets(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("BucketExists", mock.Anything, "media").Return(true, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, true, decode(t, resp)["exists"])
	})

	t.Run("Create", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("BucketExists", mock.Anything, "media").Return(false, nil)
		store.On("MakeBucket", mock.Anything, "media", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

		resp, err := app.Test(httptest.NewRequest("PUT", "/oss/buckets/media", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("CreateFailure", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("BucketExists", mock.Anything, "media").Return(false, nil)
		store.On("MakeBucket", mock.Anything, "media", mock.Anything).Return(assert.AnError)

		resp, err := app.Test(httptest.NewRequest("PUT", "/oss/buckets/media", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})

	t.Run("RemoveAbsentBucket", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("BucketExists", mock.Anything, "media").Return(false, nil)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/oss/buckets/media", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		store.AssertNotCalled(t, "RemoveBucket", mock.Anything, mock.Anything)
	})

	t.Run("FolderExists", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("ListObjects", mock.Anything, "media", minio.ListObjectsOptions{Prefix: "reports"}).
			Return(func() <-chan minio.ObjectInfo {
				ch := make(chan minio.ObjectInfo, 1)
				ch <- minio.ObjectInfo{Key: "reports/"}
				close(ch)
				return ch
			}())

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/folders?prefix=reports", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, true, decode(t, resp)["exists"])
	})
}

func TestHandleUploads(t *testing.T) {
	t.Run("Bytes", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PutObject", mock.Anything, "media", "id1.txt", mock.Anything, int64(5), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		req := httptest.NewRequest("POST", "/oss/buckets/media/objects?suffix=txt", strings.NewReader("hello"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, "id1.txt", decode(t, resp)["path"])
	})

	t.Run("MissingSuffix", func(t *testing.T) {
		app, _ := setupTestApp(t)

		req := httptest.NewRequest("POST", "/oss/buckets/media/objects", strings.NewReader("hello"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("RemoteFailure", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PutObject", mock.Anything, "media", "id1.txt", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, assert.AnError)

		req := httptest.NewRequest("POST", "/oss/buckets/media/objects?suffix=txt", strings.NewReader("hello"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})

	t.Run("Base64", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PutObject", mock.Anything, "media", "id1.txt", mock.Anything, int64(4), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		req := httptest.NewRequest("POST", "/oss/buckets/media/objects/base64", strings.NewReader(`{"content":"aGk=","suffix":"txt"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("Stream", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PutObject", mock.Anything, "media", "id1.report.pdf", mock.Anything, int64(3), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		req := httptest.NewRequest("POST", "/oss/buckets/media/objects/stream?name=report.pdf", bytes.NewReader([]byte("pdf")))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, "id1.report.pdf", decode(t, resp)["path"])
	})
}

func TestHandleCompose(t *testing.T) {
	t.Run("MissingSourceAborts", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{Key: "a.bin"}, nil)
		store.On("StatObject", mock.Anything, "media", "b.bin", mock.Anything).Return(minio.ObjectInfo{}, noSuchKey)

		req := httptest.NewRequest("POST", "/oss/buckets/media/compose", strings.NewReader(`{"sources":["a.bin","b.bin"],"suffix":"bin"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		store.AssertNotCalled(t, "ComposeObject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingSources", func(t *testing.T) {
		app, _ := setupTestApp(t)

		req := httptest.NewRequest("POST", "/oss/buckets/media/compose", strings.NewReader(`{"suffix":"bin"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestHandleObjects(t *testing.T) {
	t.Run("Download", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "reports/2024/q1.txt", mock.Anything).Return(minio.ObjectInfo{}, nil)
		store.On("GetObject", mock.Anything, "media", "reports/2024/q1.txt", mock.Anything).
			Return(io.NopCloser(strings.NewReader("quarter")), nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/objects/reports/2024/q1.txt", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "quarter", string(body))
	})

	t.Run("DownloadRange", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, nil)
		store.On("GetObject", mock.Anything, "media", "a.bin", mock.MatchedBy(func(o minio.GetObjectOptions) bool {
			return o.Header().Get("Range") == "bytes=2-5"
		})).Return(io.NopCloser(strings.NewReader("cdef")), nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/objects/a.bin?offset=2&length=4", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "cdef", string(body))
	})

	t.Run("DownloadBadRange", func(t *testing.T) {
		app, _ := setupTestApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/objects/a.bin?offset=-1", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("DownloadRangeWithoutLength", func(t *testing.T) {
		app, store := setupTestApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/objects/a.bin?offset=2", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		store.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, noSuchKey)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		store.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Head", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).
			Return(minio.ObjectInfo{Key: "a.bin", Size: 42, ContentType: "application/octet-stream"}, nil)

		resp, err := app.Test(httptest.NewRequest("HEAD", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "42", resp.Header.Get("X-Object-Size"))
	})

	t.Run("HeadMissing", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, noSuchKey)

		resp, err := app.Test(httptest.NewRequest("HEAD", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("Remove", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, nil)
		store.On("RemoveObject", mock.Anything, "media", "a.bin", mock.Anything).Return(nil)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, noSuchKey)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("RemoveFailure", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).Return(minio.ObjectInfo{}, nil)
		store.On("RemoveObject", mock.Anything, "media", "a.bin", mock.Anything).Return(assert.AnError)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/oss/buckets/media/objects/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestHandlePresign(t *testing.T) {
	signed := &url.URL{Scheme: "http", Host: "localhost:9000", Path: "/media/a.bin", RawQuery: "X-Amz-Signature=abc"}

	t.Run("GetDefaultExpiry", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PresignedGetObject", mock.Anything, "media", "a.bin", 15*time.Minute, mock.Anything).Return(signed, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/presign/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, signed.String(), decode(t, resp)["url"])
	})

	t.Run("Put", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PresignedPutObject", mock.Anything, "media", "a.bin", 5*time.Minute).Return(signed, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/presign/a.bin?method=put&expire=5", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("SigningFailure", func(t *testing.T) {
		app, store := setupTestApp(t)
		store.On("PresignedGetObject", mock.Anything, "media", "a.bin", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/presign/a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		app, _ := setupTestApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/presign/a.bin?method=delete", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestHandleCatalogDisabled(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/catalog", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["enabled"])
}

func TestFeature(t *testing.T) {
	assert.False(t, objects.NewFeature(nil, nil, zap.NewNop()).IsEnabled())

	f := objects.NewFeature(oss.New(new(mocks.Client), zap.NewNop()), nil, zap.NewNop())
	assert.Equal(t, "objects", f.Name())
	assert.True(t, f.IsEnabled())
	assert.NoError(t, f.Load(fiber.New()))
}

func TestHandleReconcile(t *testing.T) {
	t.Run("CatalogDisabled", func(t *testing.T) {
		app, store := setupTestApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/catalog/reconcile", nil))
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		store.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Report", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc, store := setupService(t, catalog.New(db), zap.NewNop())
		app := fiber.New()
		objects.NewHandler(svc).RegisterRoutes(app)

		store.On("BucketExists", mock.Anything, "media").Return(true, nil)
		store.On("ListObjects", mock.Anything, "media", minio.ListObjectsOptions{Prefix: "", Recursive: true}).
			Return(func() <-chan minio.ObjectInfo {
				ch := make(chan minio.ObjectInfo, 2)
				ch <- minio.ObjectInfo{Key: "a.bin", Size: 3}
				ch <- minio.ObjectInfo{Key: "stray.bin", Size: 1}
				close(ch)
				return ch
			}())
		sqlMock.ExpectQuery("SELECT \\* FROM `oss_objects` WHERE bucket = \\? ORDER BY path").
			WithArgs("media").
			WillReturnRows(sqlmock.NewRows([]string{"id", "bucket", "path", "size"}).AddRow(1, "media", "a.bin", 3))

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/catalog/reconcile", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Plan     reconcile.Plan `json:"plan"`
			Executed int            `json:"executed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 2, body.Plan.Summary.TotalItems)
		assert.Equal(t, 1, body.Plan.Summary.MissingCatalog)
		assert.Zero(t, body.Executed)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("BucketMissing", func(t *testing.T) {
		db, _ := setupMockDB(t)
		svc, store := setupService(t, catalog.New(db), zap.NewNop())
		app := fiber.New()
		objects.NewHandler(svc).RegisterRoutes(app)

		store.On("BucketExists", mock.Anything, "media").Return(false, nil)

		req := httptest.NewRequest("POST", "/oss/buckets/media/catalog/reconcile", strings.NewReader(`{"forget":true}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
	t.Run("SinglePath", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc, store := setupService(t, catalog.New(db), zap.NewNop())
		app := fiber.New()
		objects.NewHandler(svc).RegisterRoutes(app)

		sqlMock.ExpectQuery("SELECT \\* FROM `oss_objects` WHERE bucket = \\? AND path = \\?").
			WillReturnRows(sqlmock.NewRows([]string{"id", "bucket", "path", "size"}).AddRow(1, "media", "a.bin", 3))
		store.On("StatObject", mock.Anything, "media", "a.bin", mock.Anything).
			Return(minio.ObjectInfo{Key: "a.bin", Size: 5}, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/catalog/reconcile?path=a.bin", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Result reconcile.Result `json:"result"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "a.bin", body.Result.Path)
		assert.True(t, body.Result.CatalogPresent)
		assert.True(t, body.Result.StoragePresent)
		assert.NotEmpty(t, body.Result.Mismatch)
		store.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Drift", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc, store := setupService(t, catalog.New(db), zap.NewNop())
		app := fiber.New()
		objects.NewHandler(svc).RegisterRoutes(app)

		store.On("BucketExists", mock.Anything, "media").Return(true, nil)
		store.On("ListObjects", mock.Anything, "media", mock.Anything).
			Return(func() <-chan minio.ObjectInfo {
				ch := make(chan minio.ObjectInfo, 2)
				ch <- minio.ObjectInfo{Key: "a.bin", Size: 3}
				ch <- minio.ObjectInfo{Key: "stray.bin", Size: 1}
				close(ch)
				return ch
			}())
		sqlMock.ExpectQuery("SELECT \\* FROM `oss_objects`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "bucket", "path", "size"}).AddRow(1, "media", "a.bin", 3))

		resp, err := app.Test(httptest.NewRequest("GET", "/oss/buckets/media/catalog/drift", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Drift []reconcile.Result `json:"drift"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Drift, 1)
		assert.Equal(t, "stray.bin", body.Drift[0].Path)
		assert.False(t, body.Drift[0].CatalogPresent)
	})
}
