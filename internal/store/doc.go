// Package store provides the document-store capability behind the pipeline.
//
// The pipeline needs exactly three operations: point get with an explicit
// not-found outcome, whole-record upsert with an absolute expiry, and a
// cursor-style key scan whose result set never has to exist client-side at
// once. Not-found is a normal outcome ("first time seeing this key" or
// "record already expired"), never an error.
//
// Backends:
//   - Redis (production): GET / pipelined SET+EXPIREAT / SCAN MATCH
//   - Memory (development and tests): map with lazy expiry
//
// Expiry is absolute (epoch instant, not a relative TTL) so that rewriting a
// record with its own recomputed expiry never extends its lifetime.
package store
