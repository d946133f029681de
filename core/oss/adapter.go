package oss

import (
	"context"
	"errors"
	"fmt"
	"io"

	"oss-manager/core/storage"

	"go.uber.org/zap"
)

const defaultStatConcurrency = 8

// Adapter implements Client on top of a storage.Client. It holds no mutable
// state and is safe for concurrent use.
type Adapter struct {
	strict *Strict
	logger *zap.Logger
}

var _ Client = (*Adapter)(nil)

// Option customizes an Adapter.
type Option func(*Adapter)

// WithNameFunc replaces the generator of stored object names.
func WithNameFunc(fn NameFunc) Option {
	return func(a *Adapter) {
		if fn != nil {
			a.strict.newName = fn
		}
	}
}

// WithRegion sets the region used when creating buckets.
func WithRegion(region string) Option {
	return func(a *Adapter) {
		a.strict.region = region
	}
}

// WithStatConcurrency bounds the parallel existence checks made by ComposeObjects.
func WithStatConcurrency(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.strict.statLimit = n
		}
	}
}

// WithStorageWrapper decorates the storage client, e.g. with instrumentation.
func WithStorageWrapper(wrap func(storage.Client) storage.Client) Option {
	return func(a *Adapter) {
		if wrap != nil {
			a.strict.store = wrap(a.strict.store)
		}
	}
}

// New creates an Adapter around an existing storage client.
func New(store storage.Client, logger *zap.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		strict: &Strict{
			store:     store,
			newName:   RandomName,
			statLimit: defaultStatConcurrency,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds the storage client described by cfg and wraps it.
// It returns ErrDisabled when cfg.Enabled is false and fails when a required
// setting is missing.
func NewFromConfig(cfg storage.Config, logger *zap.Logger, opts ...Option) (*Adapter, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	store, err := storage.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("oss: %w", err)
	}
	if logger != nil {
		logger.Debug("Storage client configured",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("region", cfg.Region),
			zap.String("default_bucket", cfg.DefaultBucket))
	}
	return New(store, logger, append([]Option{WithRegion(cfg.Region)}, opts...)...), nil
}

// Strict returns the structured-error view of the same adapter.
func (a *Adapter) Strict() *Strict {
	return a.strict
}

// Storage returns the underlying storage client.
func (a *Adapter) Storage() storage.Client {
	return a.strict.store
}

// settle logs a failure that the facade swallows and returns only the errors
// callers must see (invalid arguments).
func (a *Adapter) settle(err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		a.logger.Warn("Storage operation failed", zap.Error(err))
		return nil
	}

	fields := []zap.Field{
		zap.String("op", opErr.Op),
		zap.String("bucket", opErr.Bucket),
	}
	if opErr.Object != "" {
		fields = append(fields, zap.String("object", opErr.Object))
	}

	switch opErr.Kind {
	case KindInvalidArgument:
		return err
	case KindNotFound:
		a.logger.Debug("Storage target not found", fields...)
	default:
		a.logger.Warn("Storage operation failed", append(fields, zap.Error(opErr.Err))...)
	}
	return nil
}

// failedAt reports whether err was produced by the step named op.
func failedAt(err error, op string) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Op == op
}

func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := a.strict.BucketExists(ctx, bucket)
	return ok, a.settle(err)
}

func (a *Adapter) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	ok, err := a.strict.ObjectExists(ctx, bucket, object)
	return ok, a.settle(err)
}

func (a *Adapter) FolderExists(ctx context.Context, bucket, prefix string) (bool, error) {
	ok, err := a.strict.FolderExists(ctx, bucket, prefix)
	return ok, a.settle(err)
}

// CreateBucket treats a failed existence check as a missing bucket and still
// attempts the creation.
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := a.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	ok, err := a.strict.makeBucket(ctx, bucket)
	return ok, a.settle(err)
}

// RemoveBucket treats a failed existence check as a missing bucket, which
// counts as removed.
func (a *Adapter) RemoveBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := a.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	ok, err := a.strict.removeBucket(ctx, bucket)
	return ok, a.settle(err)
}

func (a *Adapter) GetObject(ctx context.Context, bucket, object string) ([]byte, error) {
	data, err := a.strict.GetObject(ctx, bucket, object)
	return data, a.settle(err)
}

func (a *Adapter) GetObjectRange(ctx context.Context, bucket, object string, offset, length int64) ([]byte, error) {
	data, err := a.strict.GetObjectRange(ctx, bucket, object, offset, length)
	return data, a.settle(err)
}

func (a *Adapter) RemoveObject(ctx context.Context, bucket, object string) (bool, bool, error) {
	removed, err := a.strict.RemoveObject(ctx, bucket, object)
	if err == nil {
		return removed, true, nil
	}
	if err := a.settle(err); err != nil {
		return false, false, err
	}
	// Any failure of the existence check counts as "nothing to remove".
	return false, !failedAt(err, opStatObject), nil
}

func (a *Adapter) UploadBytes(ctx context.Context, bucket string, data []byte, suffix string) (string, error) {
	name, err := a.strict.UploadBytes(ctx, bucket, data, suffix)
	return name, a.settle(err)
}

func (a *Adapter) UploadBase64(ctx context.Context, bucket, text, suffix string) (string, error) {
	name, err := a.strict.UploadBase64(ctx, bucket, text, suffix)
	return name, a.settle(err)
}

func (a *Adapter) UploadLocalFile(ctx context.Context, bucket, localPath string) (string, bool, error) {
	name, err := a.strict.UploadLocalFile(ctx, bucket, localPath)
	if err == nil {
		return name, true, nil
	}
	if err := a.settle(err); err != nil {
		return "", false, err
	}
	return "", !failedAt(err, opStatLocalFile), nil
}

func (a *Adapter) UploadStream(ctx context.Context, bucket string, r io.Reader, nameSuffix string) (string, error) {
	name, err := a.strict.UploadStream(ctx, bucket, r, nameSuffix)
	return name, a.settle(err)
}

func (a *Adapter) ComposeObjects(ctx context.Context, bucket string, sources []string, suffix string) (string, error) {
	name, err := a.strict.ComposeObjects(ctx, bucket, sources, suffix)
	if KindOf(err) == KindNotFound {
		a.logger.Info("Compose skipped, source objects missing",
			zap.String("bucket", bucket), zap.Strings("sources", sources))
	}
	return name, a.settle(err)
}

func (a *Adapter) PresignedGetURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error) {
	u, err := a.strict.PresignedGetURL(ctx, bucket, object, expireMinutes)
	return u, a.settle(err)
}

func (a *Adapter) PresignedPutURL(ctx context.Context, bucket, object string, expireMinutes int) (string, error) {
	u, err := a.strict.PresignedPutURL(ctx, bucket, object, expireMinutes)
	return u, a.settle(err)
}
