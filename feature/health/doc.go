// Package health reports whether the storage backend and the catalog database
// are reachable.
//
// The storage check asks whether the configured default bucket exists, so it
// needs storage.default_bucket to be set; without it the check is "unknown".
// Components that are switched off report "disabled" and never fail the check.
//
// # HTTP Endpoints
//
//   - GET /health : 200 when healthy, 503 when a dependency fails.
package health
