// Package metrics exposes Prometheus instrumentation for the HTTP surface and
// the storage client.
//
// Every Metrics value owns its registry, so tests and multiple servers in one
// process do not collide on metric names.
package metrics
