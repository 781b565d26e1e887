// Package store memoizes analysed production logs.
//
// Reports are keyed by the SHA-256 fingerprint of the raw input bytes, so
// analysing the same bytes twice returns the cached report without running
// the pipeline again. Concurrent requests for the same fingerprint are
// collapsed into a single computation with singleflight.
//
// Each named source (a watched file path or an upload name) points at its
// current fingerprint. When a source's content changes, the report it used
// to point at is dropped unless another source still references it.
// Reports that have not been read within the TTL are evicted by Run.
package store
