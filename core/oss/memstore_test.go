package oss_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
)

// memStore is an in-memory storage.Client used to exercise the facade end to end.
type memStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	calls   map[string]int
}

var _ storage.Client = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		buckets: make(map[string]map[string][]byte),
		calls:   make(map[string]int),
	}
}

func (m *memStore) count(name string) {
	m.calls[name]++
}

func (m *memStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func noSuchBucket(bucket string) error {
	return minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404, BucketName: bucket}
}

func (m *memStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("BucketExists")
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *memStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("MakeBucket")
	if _, ok := m.buckets[bucket]; ok {
		return minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou", StatusCode: 409}
	}
	m.buckets[bucket] = make(map[string][]byte)
	return nil
}

func (m *memStore) RemoveBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("RemoveBucket")
	objects, ok := m.buckets[bucket]
	if !ok {
		return noSuchBucket(bucket)
	}
	if len(objects) > 0 {
		return minio.ErrorResponse{Code: "BucketNotEmpty", StatusCode: 409}
	}
	delete(m.buckets, bucket)
	return nil
}

func (m *memStore) lookup(bucket, object string) ([]byte, error) {
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, noSuchBucket(bucket)
	}
	data, ok := objects[object]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404, Key: object}
	}
	return data, nil
}

func (m *memStore) StatObject(_ context.Context, bucket, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("StatObject")
	data, err := m.lookup(bucket, object)
	if err != nil {
		return minio.ObjectInfo{}, err
	}
	return minio.ObjectInfo{Key: object, Size: int64(len(data))}, nil
}

func (m *memStore) GetObject(_ context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetObject")
	data, err := m.lookup(bucket, object)
	if err != nil {
		return nil, err
	}

	start, end := int64(0), int64(len(data))
	if spec := strings.TrimPrefix(opts.Header().Get("Range"), "bytes="); spec != "" {
		from, to, _ := strings.Cut(spec, "-")
		start, _ = strconv.ParseInt(from, 10, 64)
		if to != "" {
			last, _ := strconv.ParseInt(to, 10, 64)
			end = min(last+1, end)
		}
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data[start:end]))), nil
}

func (m *memStore) put(bucket, object string, data []byte) error {
	objects, ok := m.buckets[bucket]
	if !ok {
		return noSuchBucket(bucket)
	}
	objects[object] = data
	return nil
}

func (m *memStore) PutObject(_ context.Context, bucket, object string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("PutObject")
	if err := m.put(bucket, object, data); err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (m *memStore) FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	defer f.Close()
	return m.PutObject(ctx, bucket, object, f, -1, opts)
}

func (m *memStore) ComposeObject(_ context.Context, dst minio.CopyDestOptions, srcs ...minio.CopySrcOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ComposeObject")
	var buf bytes.Buffer
	for _, src := range srcs {
		data, err := m.lookup(src.Bucket, src.Object)
		if err != nil {
			return minio.UploadInfo{}, err
		}
		buf.Write(data)
	}
	if err := m.put(dst.Bucket, dst.Object, buf.Bytes()); err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object, Size: int64(buf.Len())}, nil
}

func (m *memStore) RemoveObject(_ context.Context, bucket, object string, _ minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("RemoveObject")
	objects, ok := m.buckets[bucket]
	if !ok {
		return noSuchBucket(bucket)
	}
	delete(objects, object)
	return nil
}

// ListObjects emulates a delimiter listing: keys below the first "/" after the
// prefix are folded into a common prefix ending in "/".
func (m *memStore) ListObjects(_ context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListObjects")

	seen := make(map[string]bool)
	var keys []string
	for key := range m.buckets[bucket] {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if !opts.Recursive {
			if i := strings.Index(key[len(opts.Prefix):], "/"); i >= 0 {
				key = key[:len(opts.Prefix)+i+1]
			}
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

// presign returns an unsigned URL; signing is covered against the real client.
func (m *memStore) presign(bucket, object string, expires time.Duration) *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   "localhost:9000",
		Path:   fmt.Sprintf("/%s/%s", bucket, object),
		RawQuery: url.Values{
			"X-Amz-Expires": {strconv.Itoa(int(expires.Seconds()))},
		}.Encode(),
	}
}

func (m *memStore) PresignedGetObject(_ context.Context, bucket, object string, expires time.Duration, _ url.Values) (*url.URL, error) {
	return m.presign(bucket, object, expires), nil
}

func (m *memStore) PresignedPutObject(_ context.Context, bucket, object string, expires time.Duration) (*url.URL, error) {
	return m.presign(bucket, object, expires), nil
}
