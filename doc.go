// Package mediabed implements a media host that stores uploaded bytes in
// the Telegram Bot API and serves them back at stable URLs through an
// edge cache of complete HTTP responses.
//
// # Key Components
//
//   - Service: orchestrates ingestion, resolution, and catalog mutations
//   - Catalog: interface for the durable URL -> file handle store
//     (PostgreSQL, SQLite)
//   - BlobStore: interface for the remote blob service (Telegram)
//   - EdgeCache: interface for the response cache, including negative
//     ("not found") entries
//
// # Resolution pipeline
//
// A read request walks CacheCheck -> CatalogLookup -> Resolve -> Respond.
// Permanent absence is cached as a 404 so dead links stop hitting the
// catalog; transient upstream faults are returned uncached so the next
// request retries the full pipeline.
//
// See the http package for the REST surface, the telegram package for the
// Bot API client, and the database packages for catalog backends.
package mediabed
