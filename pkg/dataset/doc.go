// Package dataset reads production logs from delimited text and writes the
// augmented record set back out.
//
// Read locates the production columns by header name, keeps every original
// cell on the record, and tolerates ragged rows, a UTF-8 BOM and legacy
// single-byte encodings. Only a missing required column is an error: such a
// file is not a production log.
//
// WriteCSV emits the original columns followed by net_idle_m and
// net_downtime_m. Fingerprint hashes raw input bytes for memoization.
package dataset
