// Package reconcile compares the object catalog with the contents of a bucket.
//
// Both sides are indexed once, concurrently: the catalog with a single query and
// the bucket with a single recursive listing, so no per-object HEAD calls are
// made. The union of paths yields one Result per path with presence flags and
// field mismatches.
//
// # Plans
//
// ReconcileWithPlan turns results into actions on the catalog:
//
//   - forget: the entry's object no longer exists.
//   - record: an object was written without going through the manager.
//   - resize: the recorded size differs from the stored one.
//
// ApplyPlan runs them only when the options are confirmed and not a dry run.
// Storage itself is never modified.
//
// # Cache
//
// Indices can be cached per bucket and prefix with a TTL. Concurrent rebuilds
// of the same key are collapsed with singleflight.
package reconcile
