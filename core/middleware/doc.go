// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key check. The key is read from X-API-Key or an
//     "Authorization: Bearer" header; configured path prefixes stay public.
//   - rayid: tags every request with a ray id (reused from X-Ray-ID when the
//     caller sends one) stored in the request locals and echoed in the response.
//
// rayid must be registered first so later middleware and handlers can log the id.
package middleware
