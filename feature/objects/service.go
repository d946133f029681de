package objects

import (
	"context"
	"io"
	"os"
	"time"

	"oss-manager/core/catalog"
	"oss-manager/core/oss"
	"oss-manager/core/reconcile"
	"oss-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Store is the storage facade together with its structured-error view and
// the raw client underneath.
type Store interface {
	oss.Client
	Strict() *oss.Strict
	Storage() storage.Client
}

// Upload routes recorded in the catalog.
const (
	SourceBytes     = "bytes"
	SourceBase64    = "base64"
	SourceStream    = "stream"
	SourceLocalFile = "local_file"
	SourceCompose   = "compose"
)

// Service exposes the facade to the HTTP and CLI surfaces and keeps the
// catalog in step with uploads and removals.
type Service struct {
	store    Store
	catalog  *catalog.Catalog
	logger   *zap.Logger
	cacheTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithReconcileCacheTTL keeps reconcile indices for ttl. Zero disables caching.
func WithReconcileCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// NewService creates a new objects service. cat may be nil.
func NewService(store Store, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: cat,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the facade.
func (s *Service) Client() oss.Client {
	return s.store
}

// Stat returns the metadata of an object.
func (s *Service) Stat(ctx context.Context, bucket, object string) (minio.ObjectInfo, error) {
	return s.store.Strict().StatObject(ctx, bucket, object)
}

// UploadBytes stores data and records it.
func (s *Service) UploadBytes(ctx context.Context, bucket string, data []byte, suffix string) (string, error) {
	name, err := s.store.UploadBytes(ctx, bucket, data, suffix)
	s.record(ctx, bucket, name, int64(len(data)), oss.ContentTypeOctetStream, SourceBytes)
	return name, err
}

// UploadBase64 stores text verbatim and records it.
func (s *Service) UploadBase64(ctx context.Context, bucket, text, suffix string) (string, error) {
	name, err := s.store.UploadBase64(ctx, bucket, text, suffix)
	s.record(ctx, bucket, name, int64(len(text)), oss.ContentTypeOctetStream, SourceBase64)
	return name, err
}

// UploadStream stores r and records it. The recorded size is -1 when r does
// not report its length.
func (s *Service) UploadStream(ctx context.Context, bucket string, r io.Reader, nameSuffix string) (string, error) {
	size := int64(-1)
	if l, ok := r.(interface{ Len() int }); ok {
		size = int64(l.Len())
	}
	name, err := s.store.UploadStream(ctx, bucket, r, nameSuffix)
	s.record(ctx, bucket, name, size, oss.ContentTypeFor(name), SourceStream)
	return name, err
}

// UploadLocalFile stores a local file and records it.
func (s *Service) UploadLocalFile(ctx context.Context, bucket, localPath string) (string, bool, error) {
	name, found, err := s.store.UploadLocalFile(ctx, bucket, localPath)
	if name != "" {
		size := int64(-1)
		if fi, statErr := os.Stat(localPath); statErr == nil {
			size = fi.Size()
		}
		s.record(ctx, bucket, name, size, oss.ContentTypeFor(localPath), SourceLocalFile)
	}
	return name, found, err
}

// Compose concatenates sources and records the result.
func (s *Service) Compose(ctx context.Context, bucket string, sources []string, suffix string) (string, error) {
	name, err := s.store.ComposeObjects(ctx, bucket, sources, suffix)
	if name != "" {
		size := int64(-1)
		if info, statErr := s.Stat(ctx, bucket, name); statErr == nil {
			size = info.Size
		}
		s.record(ctx, bucket, name, size, oss.ContentTypeFor(name), SourceCompose)
	}
	return name, err
}

// Remove deletes an object and drops it from the catalog.
func (s *Service) Remove(ctx context.Context, bucket, object string) (bool, bool, error) {
	removed, found, err := s.store.RemoveObject(ctx, bucket, object)
	if removed {
		if err := s.catalog.Forget(ctx, bucket, object); err != nil {
			s.logger.Warn("Failed to update catalog", zap.Error(err))
		}
		s.invalidate(bucket)
	}
	return removed, found, err
}

// Catalog lists the recorded objects of bucket.
func (s *Service) Catalog(ctx context.Context, bucket string, limit int) ([]catalog.Entry, bool, error) {
	if !s.catalog.Enabled() {
		return nil, false, nil
	}
	entries, err := s.catalog.List(ctx, bucket, limit)
	return entries, true, err
}

// Reconcile compares the catalog with the objects of bucket under prefix and,
// when opts are confirmed, applies the planned catalog corrections.
func (s *Service) Reconcile(ctx context.Context, bucket, prefix string, opts reconcile.Options) (*reconcile.Plan, int, error) {
	spec := s.reconcileSpec(bucket, prefix)
	plan, executed, err := reconcile.ReconcileAndApply(ctx, spec, s.catalog, s.store.Storage(), opts)
	if err != nil {
		return nil, executed, err
	}
	s.logger.Info("Catalog reconciled",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix),
		zap.Int("total", plan.Summary.TotalItems),
		zap.Int("missing_storage", plan.Summary.MissingStorage),
		zap.Int("missing_catalog", plan.Summary.MissingCatalog),
		zap.Int("mismatches", plan.Summary.Mismatches),
		zap.Int("executed", executed),
	)
	return plan, executed, nil
}

// Drift returns the paths under prefix whose catalog entry and stored object
// disagree, sorted by path.
func (s *Service) Drift(ctx context.Context, bucket, prefix string) ([]reconcile.Result, error) {
	results, err := reconcile.ReconcileAll(ctx, s.reconcileSpec(bucket, prefix), s.catalog, s.store.Storage())
	if err != nil {
		return nil, err
	}
	drift := make([]reconcile.Result, 0, len(results))
	for _, r := range results {
		if !r.CatalogPresent || !r.StoragePresent || len(r.Mismatch) > 0 {
			drift = append(drift, r)
		}
	}
	return drift, nil
}

// ReconcilePath compares the catalog entry of one path with its object.
func (s *Service) ReconcilePath(ctx context.Context, bucket, path string) (*reconcile.Result, error) {
	return reconcile.ReconcileOne(ctx, s.reconcileSpec(bucket, ""), s.catalog, s.store.Storage(), path)
}

func (s *Service) reconcileSpec(bucket, prefix string) *reconcile.Spec {
	return &reconcile.Spec{Bucket: bucket, Prefix: prefix, CacheTTL: s.cacheTTL}
}

// invalidate drops cached reconcile indices of bucket after a catalog write.
func (s *Service) invalidate(bucket string) {
	if s.cacheTTL > 0 {
		reconcile.InvalidateBucket(bucket)
	}
}

func (s *Service) record(ctx context.Context, bucket, name string, size int64, contentType, source string) {
	if name == "" {
		return
	}
	entry := catalog.Entry{
		Bucket:      bucket,
		Path:        name,
		Size:        size,
		ContentType: contentType,
		Source:      source,
	}
	if err := s.catalog.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to update catalog", zap.String("bucket", bucket), zap.String("path", name), zap.Error(err))
	}
	s.invalidate(bucket)
}
