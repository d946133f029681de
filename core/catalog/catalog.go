package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Entry is one object written through the OSS Manager.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Bucket      string    `gorm:"size:63;not null;uniqueIndex:idx_bucket_path" json:"bucket"`
	Path        string    `gorm:"size:255;not null;uniqueIndex:idx_bucket_path" json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `gorm:"size:255" json:"content_type"`
	Source      string    `gorm:"size:32" json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName pins the table name independently of the struct name.
func (Entry) TableName() string { return "oss_objects" }

// Catalog records stored objects in the database. A nil *Catalog is valid and
// records nothing.
type Catalog struct {
	db *gorm.DB
}

// New returns a catalog backed by db, or nil when db is nil.
func New(db *gorm.DB) *Catalog {
	if db == nil {
		return nil
	}
	return &Catalog{db: db}
}

// Enabled reports whether entries are persisted.
func (c *Catalog) Enabled() bool {
	return c != nil
}

// Migrate creates or updates the catalog table.
func (c *Catalog) Migrate() error {
	if c == nil {
		return nil
	}
	if err := c.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return nil
}

// Record stores e.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	if c == nil {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("failed to record %s/%s: %w", e.Bucket, e.Path, err)
	}
	return nil
}

// Forget deletes the entry for bucket/path, if any.
func (c *Catalog) Forget(ctx context.Context, bucket, path string) error {
	if c == nil {
		return nil
	}
	err := c.db.WithContext(ctx).
		Where("bucket = ? AND path = ?", bucket, path).
		Delete(&Entry{}).Error
	if err != nil {
		return fmt.Errorf("failed to forget %s/%s: %w", bucket, path, err)
	}
	return nil
}

// List returns the most recent entries of bucket, newest first.
func (c *Catalog) List(ctx context.Context, bucket string, limit int) ([]Entry, error) {
	if c == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry
	err := c.db.WithContext(ctx).
		Where("bucket = ?", bucket).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog for %s: %w", bucket, err)
	}
	return entries, nil
}

// Find returns the entry for bucket/path, or nil when none is recorded.
func (c *Catalog) Find(ctx context.Context, bucket, path string) (*Entry, error) {
	if c == nil {
		return nil, nil
	}
	var entries []Entry
	err := c.db.WithContext(ctx).
		Where("bucket = ? AND path = ?", bucket, path).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find %s/%s: %w", bucket, path, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Entries returns every entry of bucket whose path starts with prefix, ordered by path.
func (c *Catalog) Entries(ctx context.Context, bucket, prefix string) ([]Entry, error) {
	if c == nil {
		return nil, nil
	}
	q := c.db.WithContext(ctx).Where("bucket = ?", bucket)
	if prefix != "" {
		q = q.Where("path LIKE ?", escapeLike(prefix)+"%")
	}
	var entries []Entry
	if err := q.Order("path").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog for %s: %w", bucket, err)
	}
	return entries, nil
}

// Resize updates the recorded size of bucket/path.
func (c *Catalog) Resize(ctx context.Context, bucket, path string, size int64) error {
	if c == nil {
		return nil
	}
	err := c.db.WithContext(ctx).
		Model(&Entry{}).
		Where("bucket = ? AND path = ?", bucket, path).
		Update("size", size).Error
	if err != nil {
		return fmt.Errorf("failed to resize %s/%s: %w", bucket, path, err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
