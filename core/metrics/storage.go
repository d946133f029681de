package metrics

import (
	"context"
	"io"
	"net/url"
	"time"

	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
)

// Storage operation labels.
const (
	OpBucketExists       = "bucket_exists"
	OpMakeBucket         = "make_bucket"
	OpRemoveBucket       = "remove_bucket"
	OpStatObject         = "stat_object"
	OpGetObject          = "get_object"
	OpPutObject          = "put_object"
	OpFPutObject         = "fput_object"
	OpComposeObject      = "compose_object"
	OpRemoveObject       = "remove_object"
	OpListObjects        = "list_objects"
	OpPresignedGetObject = "presigned_get_object"
	OpPresignedPutObject = "presigned_put_object"
)

type instrumentedClient struct {
	next    storage.Client
	metrics *Metrics
}

var _ storage.Client = (*instrumentedClient)(nil)

// InstrumentStorage wraps c so that every call is recorded in m.
func InstrumentStorage(c storage.Client, m *Metrics) storage.Client {
	if m == nil {
		return c
	}
	return &instrumentedClient{next: c, metrics: m}
}

func (i *instrumentedClient) observe(op string, start time.Time, err error) {
	i.metrics.ObserveStorage(op, time.Since(start), err)
}

func (i *instrumentedClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	start := time.Now()
	ok, err := i.next.BucketExists(ctx, bucketName)
	i.observe(OpBucketExists, start, err)
	return ok, err
}

func (i *instrumentedClient) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	start := time.Now()
	err := i.next.MakeBucket(ctx, bucketName, opts)
	i.observe(OpMakeBucket, start, err)
	return err
}

func (i *instrumentedClient) RemoveBucket(ctx context.Context, bucketName string) error {
	start := time.Now()
	err := i.next.RemoveBucket(ctx, bucketName)
	i.observe(OpRemoveBucket, start, err)
	return err
}

func (i *instrumentedClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	start := time.Now()
	info, err := i.next.StatObject(ctx, bucketName, objectName, opts)
	i.observe(OpStatObject, start, err)
	return info, err
}

// GetObject records the time to open the object, not to drain it.
func (i *instrumentedClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := i.next.GetObject(ctx, bucketName, objectName, opts)
	i.observe(OpGetObject, start, err)
	return rc, err
}

func (i *instrumentedClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	start := time.Now()
	info, err := i.next.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
	i.observe(OpPutObject, start, err)
	if err == nil {
		i.metrics.AddUploaded(info.Size)
	}
	return info, err
}

func (i *instrumentedClient) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	start := time.Now()
	info, err := i.next.FPutObject(ctx, bucketName, objectName, filePath, opts)
	i.observe(OpFPutObject, start, err)
	if err == nil {
		i.metrics.AddUploaded(info.Size)
	}
	return info, err
}

func (i *instrumentedClient) ComposeObject(ctx context.Context, dst minio.CopyDestOptions, srcs ...minio.CopySrcOptions) (minio.UploadInfo, error) {
	start := time.Now()
	info, err := i.next.ComposeObject(ctx, dst, srcs...)
	i.observe(OpComposeObject, start, err)
	return info, err
}

func (i *instrumentedClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	start := time.Now()
	err := i.next.RemoveObject(ctx, bucketName, objectName, opts)
	i.observe(OpRemoveObject, start, err)
	return err
}

// ListObjects counts the call only; errors arrive on the channel.
func (i *instrumentedClient) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	start := time.Now()
	ch := i.next.ListObjects(ctx, bucketName, opts)
	i.observe(OpListObjects, start, nil)
	return ch
}

func (i *instrumentedClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	start := time.Now()
	u, err := i.next.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
	i.observe(OpPresignedGetObject, start, err)
	return u, err
}

func (i *instrumentedClient) PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	start := time.Now()
	u, err := i.next.PresignedPutObject(ctx, bucketName, objectName, expires)
	i.observe(OpPresignedPutObject, start, err)
	return u, err
}
