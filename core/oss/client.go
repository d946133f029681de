package oss

import (
	"context"
	"io"
)

// Client is the storage facade.
//
// Every method returns a non-nil error only when a required argument is missing
// (errors.Is(err, ErrInvalidArgument)); in that case no network call is made.
// Failures of the remote service are logged and reported through each method's
// failure value instead.
type Client interface {
	// BucketExists reports whether bucket exists; false on failure.
	BucketExists(ctx context.Context, bucket string) (bool, error)
	// ObjectExists reports whether object can be stat'ed; false on failure.
	ObjectExists(ctx context.Context, bucket, object string) (bool, error)
	// FolderExists reports whether a non-recursive listing under prefix contains
	// a directory marker.
	FolderExists(ctx context.Context, bucket, prefix string) (bool, error)

	// CreateBucket returns true when the bucket exists afterwards.
	CreateBucket(ctx context.Context, bucket string) (bool, error)
	// RemoveBucket returns true when the bucket is gone afterwards. A bucket that
	// does not exist is not touched.
	RemoveBucket(ctx context.Context, bucket string) (bool, error)

	// GetObject returns the whole object, or nil if it is missing or unreadable.
	GetObject(ctx context.Context, bucket, object string) ([]byte, error)
	// GetObjectRange returns length bytes starting at offset, or nil if the object
	// is missing or unreadable. A zero length reads to the end of the object.
	GetObjectRange(ctx context.Context, bucket, object string, offset, length int64) ([]byte, error)
	// RemoveObject deletes object. found is false when there was nothing to
	// delete; removed is false when the deletion was attempted and failed.
	RemoveObject(ctx context.Context, bucket, object string) (removed, found bool, err error)

	// UploadBytes stores data as <id>.<suffix> and returns the stored name, or ""
	// on failure.
	UploadBytes(ctx context.Context, bucket string, data []byte, suffix string) (string, error)
	// UploadBase64 stores the UTF-8 bytes of text verbatim; the text is not decoded.
	UploadBase64(ctx context.Context, bucket, text, suffix string) (string, error)
	// UploadLocalFile stores the file at localPath as <id>.<ext>. found is false
	// when localPath is missing or not a regular file; a found file with an empty
	// path means the remote write failed.
	UploadLocalFile(ctx context.Context, bucket, localPath string) (path string, found bool, err error)
	// UploadStream stores r as <id>.<nameSuffix> and returns the stored name, or ""
	// on failure.
	UploadStream(ctx context.Context, bucket string, r io.Reader, nameSuffix string) (string, error)
	// ComposeObjects concatenates sources, in order, into a new <id>.<suffix>
	// object. It returns "" without composing if any source is missing.
	ComposeObjects(ctx context.Context, bucket string, sources []string, suffix string) (string, error)

	// PresignedGetURL returns a URL granting GET on object for expireMinutes, or "".
	PresignedGetURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error)
	// PresignedPutURL returns a URL granting PUT on object for expireMinutes, or "".
	PresignedPutURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error)
}
