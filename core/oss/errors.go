package oss

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrInvalidArgument is returned, before any network call, when a required
	// argument is missing or out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDisabled is returned by NewFromConfig when the storage section is disabled.
	ErrDisabled = errors.New("oss: storage is disabled")
	// ErrNotFound marks a missing bucket, object or local file.
	ErrNotFound = errors.New("not found")
)

// Kind classifies why an operation did not produce its value.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindNotFound
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// OpError describes a failed facade operation.
type OpError struct {
	Op     string
	Bucket string
	Object string
	Kind   Kind
	Err    error
}

func (e *OpError) Error() string {
	target := e.Bucket
	if e.Object != "" {
		target += "/" + e.Object
	}
	return fmt.Sprintf("oss %s %s: %s: %v", e.Op, target, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is lets errors.Is match on ErrInvalidArgument and ErrNotFound by kind.
func (e *OpError) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// KindOf returns the Kind carried by err, or 0 when err is nil or foreign.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return 0
}

func invalidArgument(op, bucket, object, reason string) error {
	return &OpError{
		Op:     op,
		Bucket: bucket,
		Object: object,
		Kind:   KindInvalidArgument,
		Err:    fmt.Errorf("%w: %s", ErrInvalidArgument, reason),
	}
}

func notFound(op, bucket, object string) error {
	return &OpError{Op: op, Bucket: bucket, Object: object, Kind: KindNotFound, Err: ErrNotFound}
}

// remote wraps an error from the storage client, reclassifying "no such key/bucket"
// responses as KindNotFound.
func remote(op, bucket, object string, err error) error {
	kind := KindRemote
	if isNotFoundResponse(err) {
		kind = KindNotFound
	}
	return &OpError{Op: op, Bucket: bucket, Object: object, Kind: kind, Err: err}
}

func isNotFoundResponse(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound", "NoSuchObject":
		return true
	}
	return false
}
