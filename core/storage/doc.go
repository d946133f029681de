// Package storage is the boundary to the S3-compatible object store.
//
// It wraps the MinIO Go client behind a narrow Client interface holding exactly the
// calls the oss facade needs: bucket lifecycle, stat, ranged get, put (stream or
// local file), server-side compose, remove, listing and presigned URLs. Both AWS S3
// and self-hosted MinIO work as the remote service.
//
// # Client Interface
//
// The Client interface makes the remote service replaceable in unit tests
// (see core/storage/mocks).
//
// # Configuration
//
// Endpoint, AccessKey and SecretKey are required; NewClient rejects a Config that
// misses any of them. The endpoint may carry an http:// or https:// scheme; https
// forces TLS.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, "assets")
package storage
