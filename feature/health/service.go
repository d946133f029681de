package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Check statuses.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
	StatusUnknown  = "unknown"
)

// BucketChecker reports bucket existence and surfaces remote failures as errors.
// oss.Strict implements it.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Check is the outcome of one dependency check.
type Check struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report is the combined health of the service.
type Report struct {
	Status  string `json:"status"`
	Storage Check  `json:"storage"`
	Catalog Check  `json:"catalog"`
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// Service runs the health checks.
type Service struct {
	storage BucketChecker
	bucket  string
	db      *gorm.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewService creates a health service. storage and db may be nil when the
// corresponding component is disabled.
func NewService(storage BucketChecker, bucket string, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		storage: storage,
		bucket:  bucket,
		db:      db,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Check runs every check and combines them.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := Report{
		Storage: s.checkStorage(ctx),
		Catalog: s.checkCatalog(ctx),
	}
	report.Status = StatusOK
	if report.Storage.Status == StatusError || report.Catalog.Status == StatusError {
		report.Status = StatusError
	}
	return report
}

func (s *Service) checkStorage(ctx context.Context) Check {
	if s.storage == nil {
		return Check{Status: StatusDisabled}
	}
	if s.bucket == "" {
		return Check{Status: StatusUnknown, Detail: "no default bucket configured"}
	}

	exists, err := s.storage.BucketExists(ctx, s.bucket)
	if err != nil {
		s.logger.Warn("Storage health check failed", zap.String("bucket", s.bucket), zap.Error(err))
		return Check{Status: StatusError, Detail: err.Error()}
	}
	if !exists {
		return Check{Status: StatusError, Detail: "default bucket " + s.bucket + " does not exist"}
	}
	return Check{Status: StatusOK}
}

func (s *Service) checkCatalog(ctx context.Context) Check {
	if s.db == nil {
		return Check{Status: StatusDisabled}
	}
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Warn("Catalog health check failed", zap.Error(err))
		return Check{Status: StatusError, Detail: err.Error()}
	}
	return Check{Status: StatusOK}
}
