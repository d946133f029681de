// Package catalog keeps a database record of the objects written through the
// OSS Manager's HTTP and CLI surfaces.
//
// The storage service stays the source of truth; the catalog only remembers
// which generated names were handed out, with size, content type and the upload
// route that produced them. A nil *Catalog records nothing, so callers never
// branch on whether a database is configured.
package catalog
