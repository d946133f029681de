package reconcile

import (
	"context"
	"time"

	"oss-manager/core/catalog"
)

// Catalog is the catalog side of a reconciliation. *catalog.Catalog implements it.
type Catalog interface {
	Enabled() bool
	Find(ctx context.Context, bucket, path string) (*catalog.Entry, error)
	Entries(ctx context.Context, bucket, prefix string) ([]catalog.Entry, error)
	Record(ctx context.Context, e catalog.Entry) error
	Forget(ctx context.Context, bucket, path string) error
	Resize(ctx context.Context, bucket, path string, size int64) error
}

// Result is the reconciliation output for a single object path.
type Result struct {
	// Path is the object name inside the bucket.
	Path string `json:"path"`

	// CatalogPresent indicates whether the catalog has an entry for the path.
	CatalogPresent bool `json:"catalog_present"`

	// StoragePresent indicates whether the object exists in the bucket.
	StoragePresent bool `json:"storage_present"`

	// CatalogSize is the recorded size, -1 when unknown.
	CatalogSize int64 `json:"catalog_size"`

	// StorageSize is the size reported by the storage listing.
	StorageSize int64 `json:"storage_size"`

	// Mismatch describes field differences, e.g. "size: catalog=3 storage=5".
	Mismatch []string `json:"mismatch"`
}

// Spec defines the scope of a reconciliation.
type Spec struct {
	// Bucket is the bucket to reconcile.
	Bucket string

	// Prefix limits both sides to paths starting with it.
	Prefix string

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Bucket + "|" + s.Prefix
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionForget drops a catalog entry whose object is gone.
	ActionForget ActionType = "forget"
	// ActionRecord catalogues an object written outside the manager.
	ActionRecord ActionType = "record"
	// ActionResize corrects the recorded size from storage.
	ActionResize ActionType = "resize"
)

// Action represents a planned mutation operation.
type Action struct {
	Type   ActionType `json:"type"`
	Path   string     `json:"path"`
	Reason string     `json:"reason"`

	// Size is the storage size for record and resize actions.
	Size int64 `json:"size,omitempty"`

	// ContentType is stored by record actions.
	ContentType string `json:"-"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	Results []Result    `json:"results"`
	Actions []Action    `json:"actions"`
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	// TotalItems is the number of distinct paths seen on either side.
	TotalItems int `json:"total_items"`

	// MissingStorage counts catalogued paths with no object.
	MissingStorage int `json:"missing_storage"`

	// MissingCatalog counts objects with no catalog entry.
	MissingCatalog int `json:"missing_catalog"`

	// Mismatches counts paths with field discrepancies.
	Mismatches int `json:"mismatches"`

	ForgetActions int `json:"forget_actions"`
	RecordActions int `json:"record_actions"`
	ResizeActions int `json:"resize_actions"`
}

// Options controls which actions are planned and whether they run.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoForget plans removal of catalog entries whose object is gone.
	DoForget bool

	// DoRecord plans catalog entries for uncatalogued objects.
	DoRecord bool

	// DoResize plans size corrections for mismatched entries.
	DoResize bool

	// Confirmed indicates the user has confirmed the mutations.
	// If false, nothing executes regardless of DryRun.
	Confirmed bool
}
