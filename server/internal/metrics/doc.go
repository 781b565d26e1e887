// Package metrics exposes cached report statistics in the Prometheus text
// format on GET /metrics.
//
// Families are rebuilt from the report store on every scrape, so the
// exposition always matches what the REST API serves. Label sets carry the
// report source and id; loss reasons are exported for the latest report only
// and capped at maxReasons to bound cardinality.
package metrics
