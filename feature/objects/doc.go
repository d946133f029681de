// Package objects exposes buckets and objects of the configured storage over HTTP.
//
// The Service wraps the oss facade and keeps the optional catalog in step with
// uploads and removals. Absent results from the facade map to HTTP statuses:
// 404 for missing objects, 500 for failed writes and 400 for invalid arguments.
//
// # HTTP Endpoints
//
//   - GET    /oss/buckets/:bucket : Bucket existence.
//   - PUT    /oss/buckets/:bucket : Create a bucket.
//   - DELETE /oss/buckets/:bucket : Remove a bucket.
//   - GET    /oss/buckets/:bucket/folders?prefix= : Folder existence.
//   - POST   /oss/buckets/:bucket/objects?suffix= : Upload the request body.
//   - POST   /oss/buckets/:bucket/objects/base64 : Upload text verbatim.
//   - POST   /oss/buckets/:bucket/objects/stream?name= : Upload a stream.
//   - POST   /oss/buckets/:bucket/compose : Concatenate objects.
//   - GET    /oss/buckets/:bucket/objects/* : Download, optionally a byte range.
//   - HEAD   /oss/buckets/:bucket/objects/* : Object existence.
//   - DELETE /oss/buckets/:bucket/objects/* : Remove an object.
//   - GET    /oss/buckets/:bucket/presign/* : Presigned GET or PUT URL.
//   - GET    /oss/buckets/:bucket/catalog : Catalogued objects.
//   - GET    /oss/buckets/:bucket/catalog/reconcile : Catalog against bucket report.
//   - POST   /oss/buckets/:bucket/catalog/reconcile : Apply catalog corrections.
package objects
