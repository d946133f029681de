// Package oss is the object-storage facade.
//
// Client declares the operations: existence checks, bucket lifecycle, whole and
// ranged reads, uploads from bytes, text, local files and streams, server-side
// compose, removal and presigned GET/PUT URLs. Adapter implements it on top of a
// core/storage client.
//
// # Failure values
//
// Adapter never returns remote failures as errors. Each operation logs the
// failure and returns its failure value instead: false, nil bytes or an empty
// name. The only error a caller sees is one wrapping ErrInvalidArgument, returned
// before any network call when a required argument is missing.
//
// Two operations need a third state:
//
//   - RemoveObject reports found=false when there was nothing to delete, which is
//     distinct from removed=false after a failed deletion.
//   - UploadLocalFile reports found=false when the local path is not a regular
//     file, and an empty name with found=true when the remote write failed.
//
// Callers that need the reason use Adapter.Strict, which runs the same
// operations but returns *OpError values classified by Kind.
//
// # Object names
//
// Uploads and compose never let the caller pick the stored name: objects are
// written as <id>.<suffix> where id is a dash-less UUID.
//
// # Races
//
// Create/remove bucket, reads, removal and compose check existence before acting.
// The check and the action are not atomic.
//
// # Usage
//
//	client, err := oss.NewFromConfig(cfg.Storage, logger)
//	name, err := client.UploadBytes(ctx, "reports", data, "pdf")
//	url, err := client.PresignedGetURL(ctx, "reports", name, 15)
package oss
