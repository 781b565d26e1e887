// Package types defines the Go types shared by the pipeline, the CLI and the
// server. These are the canonical in-memory representations of one production
// log (a set of press-machine batch records) and of the result derived from it,
// separate from any JSON or CSV wire format.
package types
