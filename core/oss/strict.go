package oss

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"
)

const (
	opBucketExists    = "bucket_exists"
	opObjectExists    = "object_exists"
	opFolderExists    = "folder_exists"
	opCreateBucket    = "create_bucket"
	opRemoveBucket    = "remove_bucket"
	opStatObject      = "stat_object"
	opGetObject       = "get_object"
	opGetObjectRange  = "get_object_range"
	opRemoveObject    = "remove_object"
	opUploadBytes     = "upload_bytes"
	opUploadBase64    = "upload_base64"
	opStatLocalFile   = "stat_local_file"
	opUploadLocalFile = "upload_local_file"
	opUploadStream    = "upload_stream"
	opComposeObjects  = "compose_objects"
	opPresignGet      = "presign_get"
	opPresignPut      = "presign_put"
)

var errNoSources = errors.New("no source objects")

// Strict exposes the facade operations with structured errors. Every failure is
// an *OpError whose Kind tells invalid arguments, missing targets and remote
// failures apart.
type Strict struct {
	store     storage.Client
	newName   NameFunc
	region    string
	statLimit int
}

// objectName always joins with a dot, so a local file without an extension
// is stored as "<id>.".
func (s *Strict) objectName(suffix string) string {
	return s.newName() + "." + suffix
}

func requireBucket(op, bucket string) error {
	if bucket == "" {
		return invalidArgument(op, bucket, "", "bucket name is required")
	}
	return nil
}

func requireObject(op, bucket, object string) error {
	if err := requireBucket(op, bucket); err != nil {
		return err
	}
	if object == "" {
		return invalidArgument(op, bucket, object, "object name is required")
	}
	return nil
}

// BucketExists reports whether bucket exists.
func (s *Strict) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := requireBucket(opBucketExists, bucket); err != nil {
		return false, err
	}
	ok, err := s.store.BucketExists(ctx, bucket)
	if err != nil {
		return false, remote(opBucketExists, bucket, "", err)
	}
	return ok, nil
}

// StatObject returns the object's metadata.
func (s *Strict) StatObject(ctx context.Context, bucket, object string) (minio.ObjectInfo, error) {
	if err := requireObject(opStatObject, bucket, object); err != nil {
		return minio.ObjectInfo{}, err
	}
	info, err := s.store.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, remote(opStatObject, bucket, object, err)
	}
	return info, nil
}

// ObjectExists reports whether object exists. A "no such key" answer is not an error.
func (s *Strict) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	if err := requireObject(opObjectExists, bucket, object); err != nil {
		return false, err
	}
	if _, err := s.StatObject(ctx, bucket, object); err != nil {
		if KindOf(err) == KindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FolderExists reports whether a non-recursive listing under prefix yields a
// directory marker. An empty prefix lists the bucket root.
func (s *Strict) FolderExists(ctx context.Context, bucket, prefix string) (bool, error) {
	if err := requireBucket(opFolderExists, bucket); err != nil {
		return false, err
	}

	// Stop the listing goroutine once we return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: false}
	for obj := range s.store.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return false, remote(opFolderExists, bucket, prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			return true, nil
		}
	}
	return false, nil
}

// CreateBucket makes bucket unless it already exists.
func (s *Strict) CreateBucket(ctx context.Context, bucket string) (bool, error) {
	if err := requireBucket(opCreateBucket, bucket); err != nil {
		return false, err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return s.makeBucket(ctx, bucket)
}

func (s *Strict) makeBucket(ctx context.Context, bucket string) (bool, error) {
	if err := s.store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		// Lost a race against a concurrent creator of the same bucket.
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return true, nil
		}
		return false, remote(opCreateBucket, bucket, "", err)
	}
	return true, nil
}

// RemoveBucket removes bucket if it exists.
func (s *Strict) RemoveBucket(ctx context.Context, bucket string) (bool, error) {
	if err := requireBucket(opRemoveBucket, bucket); err != nil {
		return false, err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return s.removeBucket(ctx, bucket)
}

func (s *Strict) removeBucket(ctx context.Context, bucket string) (bool, error) {
	if err := s.store.RemoveBucket(ctx, bucket); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return true, nil
		}
		return false, remote(opRemoveBucket, bucket, "", err)
	}
	return true, nil
}

// GetObject reads the whole object into memory.
func (s *Strict) GetObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := requireObject(opGetObject, bucket, object); err != nil {
		return nil, err
	}
	return s.read(ctx, opGetObject, bucket, object, minio.GetObjectOptions{})
}

// GetObjectRange reads length bytes starting at offset. length must be positive.
func (s *Strict) GetObjectRange(ctx context.Context, bucket, object string, offset, length int64) ([]byte, error) {
	if err := requireObject(opGetObjectRange, bucket, object); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, invalidArgument(opGetObjectRange, bucket, object, "offset must not be negative")
	}
	if length <= 0 {
		return nil, invalidArgument(opGetObjectRange, bucket, object, "length must be positive")
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, invalidArgument(opGetObjectRange, bucket, object, err.Error())
	}
	return s.read(ctx, opGetObjectRange, bucket, object, opts)
}

func (s *Strict) read(ctx context.Context, op, bucket, object string, opts minio.GetObjectOptions) ([]byte, error) {
	exists, err := s.ObjectExists(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(op, bucket, object)
	}

	rc, err := s.store.GetObject(ctx, bucket, object, opts)
	if err != nil {
		return nil, remote(op, bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, remote(op, bucket, object, err)
	}
	return data, nil
}

// RemoveObject deletes object. A missing object yields a KindNotFound error from
// the stat_object step.
func (s *Strict) RemoveObject(ctx context.Context, bucket, object string) (bool, error) {
	if err := requireObject(opRemoveObject, bucket, object); err != nil {
		return false, err
	}
	if _, err := s.StatObject(ctx, bucket, object); err != nil {
		return false, err
	}
	if err := s.store.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return false, remote(opRemoveObject, bucket, object, err)
	}
	return true, nil
}

// UploadBytes stores data under a generated <id>.<suffix> name.
func (s *Strict) UploadBytes(ctx context.Context, bucket string, data []byte, suffix string) (string, error) {
	if err := requireBucket(opUploadBytes, bucket); err != nil {
		return "", err
	}
	if data == nil {
		return "", invalidArgument(opUploadBytes, bucket, "", "data is required")
	}
	return s.putBytes(ctx, opUploadBytes, bucket, data, suffix)
}

// UploadBase64 stores the UTF-8 bytes of text as-is.
func (s *Strict) UploadBase64(ctx context.Context, bucket, text, suffix string) (string, error) {
	if err := requireBucket(opUploadBase64, bucket); err != nil {
		return "", err
	}
	return s.putBytes(ctx, opUploadBase64, bucket, []byte(text), suffix)
}

func (s *Strict) putBytes(ctx context.Context, op, bucket string, data []byte, suffix string) (string, error) {
	if suffix == "" {
		return "", invalidArgument(op, bucket, "", "suffix is required")
	}
	name := s.objectName(suffix)
	opts := minio.PutObjectOptions{ContentType: ContentTypeOctetStream}
	if _, err := s.store.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", remote(op, bucket, name, err)
	}
	return name, nil
}

// UploadLocalFile stores a local regular file under <id>.<ext>. A missing or
// non-regular path yields a KindNotFound error from the stat_local_file step.
func (s *Strict) UploadLocalFile(ctx context.Context, bucket, localPath string) (string, error) {
	if err := requireBucket(opUploadLocalFile, bucket); err != nil {
		return "", err
	}
	if localPath == "" {
		return "", invalidArgument(opUploadLocalFile, bucket, localPath, "local path is required")
	}

	fi, err := os.Stat(localPath)
	if err != nil || !fi.Mode().IsRegular() {
		return "", notFound(opStatLocalFile, bucket, localPath)
	}

	name := s.objectName(fileSuffix(localPath))
	opts := minio.PutObjectOptions{ContentType: ContentTypeFor(localPath)}
	if _, err := s.store.FPutObject(ctx, bucket, name, localPath, opts); err != nil {
		return "", remote(opUploadLocalFile, bucket, name, err)
	}
	return name, nil
}

// UploadStream stores r under <id>.<nameSuffix>. The declared size is exact when
// r reports its length; otherwise the client streams it as a multipart upload.
func (s *Strict) UploadStream(ctx context.Context, bucket string, r io.Reader, nameSuffix string) (string, error) {
	if err := requireBucket(opUploadStream, bucket); err != nil {
		return "", err
	}
	if r == nil {
		return "", invalidArgument(opUploadStream, bucket, "", "reader is required")
	}
	if nameSuffix == "" {
		return "", invalidArgument(opUploadStream, bucket, "", "name suffix is required")
	}

	name := s.objectName(nameSuffix)
	opts := minio.PutObjectOptions{ContentType: ContentTypeFor(name)}
	if _, err := s.store.PutObject(ctx, bucket, name, r, readerSize(r), opts); err != nil {
		return "", remote(opUploadStream, bucket, name, err)
	}
	return name, nil
}

// readerSize returns the number of bytes left in r, or -1 when unknown.
func readerSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case *os.File:
		fi, err := v.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			return -1
		}
		pos, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return fi.Size() - pos
	}
	return -1
}

// ComposeObjects concatenates sources into a new <id>.<suffix> object. Every
// source must exist; otherwise nothing is composed.
func (s *Strict) ComposeObjects(ctx context.Context, bucket string, sources []string, suffix string) (string, error) {
	if err := requireBucket(opComposeObjects, bucket); err != nil {
		return "", err
	}
	if sources == nil {
		return "", invalidArgument(opComposeObjects, bucket, "", "source objects are required")
	}
	if suffix == "" {
		return "", invalidArgument(opComposeObjects, bucket, "", "suffix is required")
	}
	for _, src := range sources {
		if src == "" {
			return "", invalidArgument(opComposeObjects, bucket, "", "source object name is required")
		}
	}
	if len(sources) == 0 {
		return "", &OpError{Op: opComposeObjects, Bucket: bucket, Kind: KindNotFound, Err: errNoSources}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.statLimit)
	for _, src := range sources {
		g.Go(func() error {
			exists, err := s.ObjectExists(gctx, bucket, src)
			if err != nil {
				return err
			}
			if !exists {
				return notFound(opComposeObjects, bucket, src)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	srcs := make([]minio.CopySrcOptions, 0, len(sources))
	for _, src := range sources {
		srcs = append(srcs, minio.CopySrcOptions{Bucket: bucket, Object: src})
	}
	name := s.objectName(suffix)
	dst := minio.CopyDestOptions{Bucket: bucket, Object: name}
	if _, err := s.store.ComposeObject(ctx, dst, srcs...); err != nil {
		return "", remote(opComposeObjects, bucket, name, err)
	}
	return name, nil
}

// PresignedGetURL returns a URL granting GET on object for expireMinutes.
func (s *Strict) PresignedGetURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error) {
	if err := requireObject(opPresignGet, bucket, object); err != nil {
		return "", err
	}
	u, err := s.store.PresignedGetObject(ctx, bucket, object, minutes(expireMinutes), nil)
	if err != nil {
		return "", remote(opPresignGet, bucket, object, err)
	}
	return u.String(), nil
}

// PresignedPutURL returns a URL granting PUT on object for expireMinutes.
func (s *Strict) PresignedPutURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error) {
	if err := requireObject(opPresignPut, bucket, object); err != nil {
		return "", err
	}
	u, err := s.store.PresignedPutObject(ctx, bucket, object, minutes(expireMinutes))
	if err != nil {
		return "", remote(opPresignPut, bucket, object, err)
	}
	return u.String(), nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
